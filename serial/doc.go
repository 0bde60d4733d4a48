// Package serial converts Go object graphs to tag trees and back.
//
// This package contains:
//   - the type classifier that picks a traversal strategy per Go type
//   - the type registry and cached per-struct field descriptors
//   - the identity context shared by one serialize or deserialize call
//   - the reflective encoder and decoder
//
// Pointers to structs carry identity: the first visit writes a compound
// stamped with an id and a registered type name, later visits of the same
// pointer write a compound holding only the id. Decoding allocates and
// registers each object before populating it, so shared references and
// cycles come back as the same instances. A field read during the
// population of an object that is still being populated (through a cycle)
// observes zero values.
package serial
