// Package lineage groups versioned entities into predecessor chains and
// computes the order in which they can be deleted.
//
// An entity names at most one predecessor. Entities connected through
// predecessor references that are present in the working set form a
// lineage; an entity whose predecessor is missing from the set is the root
// of its lineage. Lineages partition the set.
//
// Deleting the most recent version of a lineage first guarantees that no
// entity is removed while another entity still names it as predecessor.
// [Sort] produces that order; lineages are concatenated by ordinal
// comparison of their root ids, which carries no meaning beyond making the
// output independent of input order.
package lineage
