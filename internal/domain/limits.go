package domain

// Column sizes, in characters, of the user-supplied fields the schema bounds.
const (
	MaxUserIDLen = 128
	MaxEmailLen  = 255
	MaxTitleLen  = 200
)
