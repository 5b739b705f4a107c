package helpers

// Fataler is satisfied by *log2.Log and testing.TB.
type Fataler interface {
	Fatal(...interface{})
}
