package model

// OpError records a script operation that the pool rejected.
type OpError struct {
	Line  int    `json:"line"`
	Op    string `json:"op"`
	Error string `json:"error"`
}
