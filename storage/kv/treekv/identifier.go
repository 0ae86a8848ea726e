package treekv

const (
	// TreeIdentifier is the domain separation for tree records.
	TreeIdentifier = 'T'
)
