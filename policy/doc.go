// Package policy provides the optional admission rules applied by the
// lifecycle manager when a process is created, started or resumed.
package policy
