package data

// OpenFlags controls the behavior of the open operation.
type OpenFlags uint64

const (
	// OpenCreate creates the file when it does not exist yet.
	OpenCreate OpenFlags = 1 << 0
)

// Has reports whether all bits of flag are set.
func (f OpenFlags) Has(flag OpenFlags) bool {
	return f&flag == flag
}
