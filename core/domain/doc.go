// Package domain computes, for every task, the ordered list of grid slots it
// may start in. Each task runs through the same filter pipeline:
//
//  1. slots of the task week, or of the enabled weeks for monthly tasks
//  2. group constraints (not_day / only_day, optionally week scoped)
//  3. the person's availability allow-list, when one exists
//  4. duration contiguity
//
// Every stage leaves a trace in the task diagnostic. A task left without any
// start is reported invalid but still handed to the solvers.
package domain
