/*
Package sqlrow implements result rows: immutable, fixed-shape snapshots of
one record of a query result.

A row can be addressed three ways, all through the Key type:

1. By position, Index(i), and by range, Slice(lo, hi).

2. By column label, Name("email").

3. By column identity, Col(c), where c is the *Column that produced the value.

Column labels, the key map and the fallback rules come from a Metadata shared
by all rows of a result (ResultMetadata is the stock implementation).

# Strict rows

Strict rows behave like tuples. Get accepts only positional keys,
Contains tests values, and Equal/Compare work position by position against
other rows or plain slices. Mapping-style access goes through Row.Mapping.

# Legacy rows

Legacy rows share the same storage but keep the older mapping-first
behavior: Get accepts any key and Contains tests keys, where a key is a
label, a *Column, a Key or any Go integer. Non-positional subscription and
the Keys/ValuesList/Items/HasKey accessors raise compatibility warnings
through Metadata.Warn.

# Mapping and views

RowMapping is a read-only dictionary facade over a row. Its Keys, Values and
Items return View collections materialized at call time. Views compare as
ordered lists, not as sets.

Note that RowMapping.Len counts storage slots, while iteration only visits
labeled columns.

# Serialization

Row.State and Reconstruct convert a row to and from its (metadata, values)
pair. MarshalBinary and UnmarshalRow use a stable binary format:

1. Flags (uvarint): format version, legacy bit, has-metadata bit.
2. A tuple of elements: msgpack metadata state (or empty), then one msgpack
value per column.

Spool persists named results in Bolt (or memory), storing the metadata once
per result and each row in the same format without metadata.
*/
package sqlrow
