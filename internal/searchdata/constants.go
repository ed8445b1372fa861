package searchdata

// Search data layout constants
const (
	// UnionFilePrefix names Doxygen's per-letter files holding every symbol
	UnionFilePrefix = "all"

	// SearchDataVar is the JavaScript variable Doxygen assigns the table to
	SearchDataVar = "searchData"

	// MaxFileSize bounds a single search file read (Doxygen splits per letter)
	MaxFileSize = 32 << 20
)
