// Package discover lists the article URLs a source currently advertises,
// from its feed when it has one and from a listing page otherwise, and
// decides which of them are new relative to the visit ledger.
package discover
