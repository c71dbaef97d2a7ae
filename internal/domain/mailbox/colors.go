package mailbox

import (
	"strconv"
	"strings"
)

// Outlook restricts category colors to 25 presets while Gmail accepts
// arbitrary hex. HexToO365Color maps a hex value to the nearest preset
// by squared RGB distance. The mapping is lossy and best-effort; exact
// color fidelity across providers is not promised.

type presetColor struct {
	name string
	r    int
	g    int
	b    int
}

// Outlook master category preset palette (preset0..preset24)
var o365Presets = []presetColor{
	{"preset0", 0xE7, 0x4C, 0x3C},  // red
	{"preset1", 0xE6, 0x7E, 0x22},  // orange
	{"preset2", 0x8B, 0x45, 0x13},  // brown
	{"preset3", 0xF1, 0xC4, 0x0F},  // yellow
	{"preset4", 0x2E, 0xCC, 0x71},  // green
	{"preset5", 0x1A, 0xBC, 0x9C},  // teal
	{"preset6", 0x84, 0x8B, 0x2F},  // olive
	{"preset7", 0x34, 0x98, 0xDB},  // blue
	{"preset8", 0x9B, 0x59, 0xB6},  // purple
	{"preset9", 0xE0, 0x5A, 0x8C},  // cranberry
	{"preset10", 0x95, 0xA5, 0xA6}, // steel
	{"preset11", 0x34, 0x49, 0x5E}, // dark steel
	{"preset12", 0x7F, 0x8C, 0x8D}, // gray
	{"preset13", 0x57, 0x5F, 0x63}, // dark gray
	{"preset14", 0x2C, 0x3E, 0x50}, // black
	{"preset15", 0x8E, 0x24, 0x16}, // dark red
	{"preset16", 0xA8, 0x4E, 0x10}, // dark orange
	{"preset17", 0x6E, 0x3B, 0x10}, // dark brown
	{"preset18", 0xB7, 0x95, 0x0B}, // dark yellow
	{"preset19", 0x1E, 0x84, 0x49}, // dark green
	{"preset20", 0x11, 0x72, 0x64}, // dark teal
	{"preset21", 0x55, 0x5B, 0x1E}, // dark olive
	{"preset22", 0x1F, 0x61, 0x8D}, // dark blue
	{"preset23", 0x6C, 0x34, 0x83}, // dark purple
	{"preset24", 0x94, 0x3B, 0x5E}, // dark cranberry
}

// HexToO365Color maps an arbitrary hex color to the nearest Outlook
// preset name. Pass-through for values already in preset form.
// Unparseable input falls back to "preset0".
func HexToO365Color(hex string) string {
	hex = strings.TrimSpace(strings.ToLower(hex))
	if strings.HasPrefix(hex, "preset") {
		if n, err := strconv.Atoi(strings.TrimPrefix(hex, "preset")); err == nil && n >= 0 && n < len(o365Presets) {
			return hex
		}
		return o365Presets[0].name
	}

	r, g, b, ok := parseHexColor(hex)
	if !ok {
		return o365Presets[0].name
	}

	best := o365Presets[0].name
	bestDist := 1 << 30
	for _, p := range o365Presets {
		dr, dg, db := r-p.r, g-p.g, b-p.b
		dist := dr*dr + dg*dg + db*db
		if dist < bestDist {
			bestDist = dist
			best = p.name
		}
	}
	return best
}

func parseHexColor(hex string) (r, g, b int, ok bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF), true
}
