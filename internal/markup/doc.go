// Package markup provides the attributed element tree that composition
// documents are parsed into, plus the live Document that applies structural
// patches by element id.
//
// Parsing and serialization use encoding/xml. Element trees handed to the
// resolver are treated as immutable; Document applies every patch batch to a
// copy and swaps it in only when the whole batch succeeds.
package markup
