// Package imageds deserializes image/label datasets described by a
// tab-delimited mapping file.
//
// Construction parses the mapping file once into immutable tables: a
// global sequence table, a table of fixed-capacity chunks partitioning
// it, and a routing table from sequence id to the byte source serving
// its path (loose file, archive container entry, or remote object).
//
//	corp := corpus.NewDescriptor()
//	ds, err := imageds.New(corp, "train_map.txt", 1000)
//	if err != nil { ... }
//	defer ds.Close()
//
//	chunk, err := ds.LoadChunk(ctx, 0)
//	if err != nil { ... }
//	defer chunk.Release()
//
//	sample, label, err := chunk.GetSequence(42)
//
// After construction the tables are frozen: LoadChunk may be called
// concurrently for different chunk ids (e.g. by a prefetcher running
// ahead of the consumer), and GetSequence may be called concurrently
// for sequences of an already-loaded chunk. A chunk's raw buffers stay
// valid until its last reference is released.
package imageds
