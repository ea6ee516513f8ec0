package enums

// ReturnStatus is the per-sale aggregate describing how much of a sale
// has been refunded. It only ever progresses none -> partial -> full.
type ReturnStatus string

const (
	ReturnStatusNone    ReturnStatus = "none"
	ReturnStatusPartial ReturnStatus = "partial"
	ReturnStatusFull    ReturnStatus = "full"
)

// String implements fmt.Stringer.
func (r ReturnStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnStatus.
func (r ReturnStatus) IsValid() bool {
	switch r {
	case ReturnStatusNone, ReturnStatusPartial, ReturnStatusFull:
		return true
	}
	return false
}
