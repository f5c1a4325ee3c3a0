package lending

// BookID is a type alias for string, identifying a catalog entry.
type BookID = string

// BorrowerID is a type alias for string, identifying a borrower profile.
type BorrowerID = string

// RecordID is a type alias for string, identifying a single loan record.
type RecordID = string
