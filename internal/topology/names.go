package topology

import "strings"

// specialButtonKey identifies a button by its keypad's model number
// and its button number within that keypad.
type specialButtonKey struct {
	model  string
	number int
}

// specialButtonNames covers the raise/lower and other fixed-function
// buttons that ship without a useful engraving or Name field, keyed
// by keypad model number. Not exhaustive — it covers the common Pico
// raise/lower remotes described in §4.4.
var specialButtonNames = map[specialButtonKey]string{
	{"PJ2-2B-GXX-L01", 1}: "On",
	{"PJ2-2B-GXX-L01", 2}: "Off",
	{"PJ2-2BRL-GXX-L01", 1}: "Raise",
	{"PJ2-2BRL-GXX-L01", 2}: "Lower",
	{"PJ2-3BRL-GXX-L01", 1}: "Raise (Top)",
	{"PJ2-3BRL-GXX-L01", 2}: "Favorite",
	{"PJ2-3BRL-GXX-L01", 3}: "Lower (Bottom)",
	{"PJ2-4B-GXX-L01", 1}: "Button 1",
	{"PJ2-4B-GXX-L01", 2}: "Button 2",
	{"PJ2-4B-GXX-L01", 3}: "Button 3",
	{"PJ2-4B-GXX-L01", 4}: "Button 4",
}

// defaultButtonName resolves a button's display name: engraved text
// wins if present, then the per-model special-button table, then the
// bridge's own Name field, per §4.4.
func defaultButtonName(engravingText, modelNumber string, buttonNumber int, rawName string) string {
	if text := strings.TrimSpace(strings.ReplaceAll(engravingText, "\n", " ")); text != "" {
		return text
	}
	if name, ok := specialButtonNames[specialButtonKey{modelNumber, buttonNumber}]; ok {
		return name
	}
	return rawName
}
