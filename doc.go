// Package shuffle contains the core components of a distributed table
// shuffle: the collective that redistributes a columnar vertex or edge
// table across peer workers so that every row lands on the worker owning
// it. Its subpackages are the type system (types), the column/record-batch
// library (table, schema), the type-dispatched codec (internal/codec), the
// schema-equality barrier (internal/barrier), the four-stage shuffle
// pipeline (internal/shuffle), and the two public collective operations
// (router). comm defines the group-communication transport this module is
// built against.
package shuffle
