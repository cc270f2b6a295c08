// Package retry holds files that are not yet processable and re-attempts them
// on an exponential backoff schedule.
//
// Each PendingFile carries its attempt count and next retry time. A background
// tick hands due files to a caller-supplied attempt function; failures are
// re-enqueued with a longer delay until the attempt cap drops the file. All
// state lives in memory behind one mutex and survives Stop/Start but not a
// process restart.
package retry
