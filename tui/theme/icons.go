package theme

import (
	"os"

	"github.com/grovetools/editorbridge/config"
)

// Nerd Font icons.
const (
	nerdIconSuccess   = "󰄬" // md-check (U+F012C)
	nerdIconError     = "" // cod-error (U+EA87)
	nerdIconWarning   = "" // fa-warning (U+F071)
	nerdIconInfo      = "󰋼" // md-information (U+F02FC)
	nerdIconArrow     = "󰁔" // md-arrow_right (U+F0054)
	nerdIconBullet    = "" // oct-dot_fill (U+F444)
	nerdIconLink      = "󰌹" // md-link_variant (U+F0339)
	nerdIconQuote     = "󰝗" // md-format_quote_close (U+F0757)
	nerdIconHeader    = "󰉫" // md-format_header_1 (U+F026B)
	nerdIconOrdered   = "󰉻" // md-format_list_numbered (U+F027B)
	nerdIconUnordered = "󰉹" // md-format_list_bulleted (U+F0279)
)

// ASCII fallback icons.
const (
	asciiIconSuccess   = "✓"
	asciiIconError     = "✗"
	asciiIconWarning   = "⚠"
	asciiIconInfo      = "ℹ"
	asciiIconArrow     = "→"
	asciiIconBullet    = "•"
	asciiIconLink      = "@"
	asciiIconQuote     = ">"
	asciiIconHeader    = "H"
	asciiIconOrdered   = "1."
	asciiIconUnordered = "-"
)

// Public icon variables, resolved at startup.
var (
	IconSuccess   string
	IconError     string
	IconWarning   string
	IconInfo      string
	IconArrow     string
	IconBullet    string
	IconLink      string
	IconQuote     string
	IconHeader    string
	IconOrdered   string
	IconUnordered string
)

func init() {
	UseASCIIIcons(wantASCIIIcons())
}

// wantASCIIIcons checks EDITORBRIDGE_ICONS, then the tui.icons setting.
func wantASCIIIcons() bool {
	if os.Getenv("EDITORBRIDGE_ICONS") == "ascii" {
		return true
	}
	cfg, err := config.LoadDefault()
	if err != nil {
		return false
	}
	var tuiCfg struct {
		Icons string `yaml:"icons"`
	}
	if err := cfg.UnmarshalExtension("tui", &tuiCfg); err != nil {
		return false
	}
	return tuiCfg.Icons == "ascii"
}

// UseASCIIIcons switches between the ASCII and Nerd Font icon sets.
func UseASCIIIcons(ascii bool) {
	if ascii {
		IconSuccess = asciiIconSuccess
		IconError = asciiIconError
		IconWarning = asciiIconWarning
		IconInfo = asciiIconInfo
		IconArrow = asciiIconArrow
		IconBullet = asciiIconBullet
		IconLink = asciiIconLink
		IconQuote = asciiIconQuote
		IconHeader = asciiIconHeader
		IconOrdered = asciiIconOrdered
		IconUnordered = asciiIconUnordered
		return
	}
	IconSuccess = nerdIconSuccess
	IconError = nerdIconError
	IconWarning = nerdIconWarning
	IconInfo = nerdIconInfo
	IconArrow = nerdIconArrow
	IconBullet = nerdIconBullet
	IconLink = nerdIconLink
	IconQuote = nerdIconQuote
	IconHeader = nerdIconHeader
	IconOrdered = nerdIconOrdered
	IconUnordered = nerdIconUnordered
}
