// Package hostlock keeps two capture hosts from sharing one work root. The
// lock is advisory (flock on Unix) and released automatically if the process
// dies.
package hostlock
