// Package service replays scripted container workloads.
//
// A scenario is a YAML document naming a sequence of vector operations over
// instrumented probe elements. Replaying it reports the final contents and
// the lifecycle calls the container made, which makes growth, transfer
// strategy and failure rollback observable from the command line.
package service
