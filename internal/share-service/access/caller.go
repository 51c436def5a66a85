package access

// Caller is the verified identity of whoever invokes an operation.
// The zero value is an anonymous caller.
type Caller string

const Anonymous Caller = ""

func (c Caller) Authenticated() bool {
	return c != Anonymous
}
