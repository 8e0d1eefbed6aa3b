// Package ballotservice owns the ballot write path for the polling core: it
// validates cast ballots against the poll's voting-method schema, enforces the
// at-most-one-effective-ballot rule per voter, and keeps an append-only record
// so superseded ballots stay available for the audit commitment log.
package ballotservice
