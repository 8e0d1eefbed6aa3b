// Package privacyservice is the disclosure gate for poll results. Nothing
// leaves the polling core without passing through it: every disclosure charges
// the poll's epsilon budget atomically, suppresses or merges small breakdown
// buckets, and adds Laplace noise calibrated to the charged epsilon. The layer
// fails closed; if the ledger cannot be read or charged, no data is released.
package privacyservice
