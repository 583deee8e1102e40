package constants

// Mode is the extraction schema tag sent with every /extract request. It
// selects the prompt on the service side and the session collection results
// land in on ours.
type Mode string

// Stable values (the service matches on these exact strings).
const (
	ModeStandard     Mode = "standard"      // invoices and warehouse slips
	ModeMaterialList Mode = "material_list" // bảng kê vật tư (grouped lists)
)

// ParseMode returns the Mode for a wire tag, defaulting to ModeStandard for
// anything unrecognized.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeStandard, ModeMaterialList:
		return Mode(s), true
	}
	return ModeStandard, false
}
