/*
Package persondir resolves a user identifier to a locked set of person attributes.

# Pipeline

An Engine runs one lookup as:

  - substitute the identifier into the filter template (every {0}, unescaped)
  - search the Directory, or resolve the DN first when FetchDirectDN is set
  - optionally store the composed entry DN under DNAttribute
  - copy requested attributes into a Record, renaming them via AttributeMapping
  - run every Processor in order
  - lock the Record

An identifier that matches nothing yields a nil Record and a nil error.

# Records

A Record holds string and []byte values. Once locked, every mutator returns
ErrRecordLocked. Locked records are safe for concurrent reads.

# Processors

Processor implementations live in the processors sub-package. Each declares the
attribute names it may add so that PossibleNames can report the full output schema
without querying the directory.
*/
package persondir
