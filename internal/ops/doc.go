// Package ops defines Operation, the closed set of serializable grid
// mutations applied by the transaction engine.
//
// Every operation carries exactly the data needed to replay it, and every
// mutating operation has a reverse computed by the grid store at apply
// time. Operations serialize as flat JSON objects tagged with "type":
//
//	{"type":"resize_row","sheet_id":"s1","row":0,"new_size":40}
//
// The set is closed: the unexported marker method keeps other packages from
// adding variants, so type switches over Operation are exhaustive.
package ops
