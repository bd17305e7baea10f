package imageds

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crazypenguincode/CNTK/bytesource"
	"github.com/crazypenguincode/CNTK/corpus"
)

// tables holds the frozen output of an index build. All fields are
// read-only after build and safe for unsynchronized concurrent reads.
type tables struct {
	sequences []SequenceDescription
	chunks    []ChunkDescription
	// keyToSequence maps an interned sequence key to its index in the
	// sequence table. Later duplicates overwrite earlier ones.
	keyToSequence map[uint64]int
}

// indexBuilder consumes a mapping file once and produces frozen tables.
// It is used single-threaded during construction and then discarded.
type indexBuilder struct {
	corpus   *corpus.Descriptor
	resolver *bytesource.Resolver
	labelDim int
	replicas int
	capacity int
	logger   *Logger
}

// Mapping-file line formats:
//
//	key<TAB>path<TAB>classId
//	path<TAB>classId            (legacy; key = 0-based line number)
//
// Columns beyond the third are ignored.
func (b *indexBuilder) build(mapPath string) (*tables, error) {
	f, err := os.Open(mapPath)
	if err != nil {
		return nil, fmt.Errorf("open mapping file %q: %w", mapPath, err)
	}
	defer f.Close()

	start := time.Now()

	t := &tables{keyToSequence: make(map[uint64]int)}
	registry := b.corpus.Registry()
	current := ChunkDescription{}

	var curID uint64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineIndex := 0; scanner.Scan(); lineIndex++ {
		line := scanner.Text()

		key, path, classField, err := splitMappingLine(line, lineIndex)
		if err != nil {
			return nil, &FormatError{File: mapPath, Line: lineIndex, Reason: err.Error()}
		}

		if !b.corpus.IsIncluded(key) {
			continue
		}

		classID, err := strconv.ParseUint(classField, 10, 32)
		if err != nil {
			return nil, &FormatError{
				File: mapPath, Line: lineIndex,
				Reason: fmt.Sprintf("cannot parse class id %q", classField),
				cause:  err,
			}
		}
		if classID >= uint64(b.labelDim) {
			return nil, &FormatError{
				File: mapPath, Line: lineIndex,
				Reason: fmt.Sprintf("image %q has class id %d outside label dimension %d", path, classID, b.labelDim),
			}
		}

		if curID+uint64(b.replicas) > MaxChunkID {
			return nil, fmt.Errorf("mapping file %q: %w", mapPath, ErrChunkIDOverflow)
		}

		// Publish the full chunk before this line's replicas so a
		// line's replicas never split across chunks.
		if current.NumSamples >= b.capacity {
			t.chunks = append(t.chunks, current)
			current = ChunkDescription{
				ID:         current.ID + 1,
				StartIndex: len(t.sequences),
			}
		}

		desc := SequenceDescription{
			ChunkID: current.ID,
			Path:    path,
			ClassID: uint32(classID),
			Key:     Key{Sequence: registry.Intern(key)},
		}
		for i := 0; i < b.replicas; i++ {
			desc.ID = curID
			curID++

			t.keyToSequence[desc.Key.Sequence] = len(t.sequences)
			t.sequences = append(t.sequences, desc)
			current.NumSamples++
			current.NumSequences++

			if err := b.resolver.Resolve(desc.ID, desc.Path); err != nil {
				return nil, &FormatError{
					File: mapPath, Line: lineIndex,
					Reason: fmt.Sprintf("cannot resolve path %q", desc.Path),
					cause:  err,
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read mapping file %q: %w", mapPath, err)
	}

	if current.NumSamples > 0 {
		t.chunks = append(t.chunks, current)
	}

	// Deferred register step: each container handle learns the full
	// item set it must serve.
	b.resolver.Finalize()

	b.logger.Info("mapping file indexed",
		"file", mapPath,
		"sequences", len(t.sequences),
		"chunks", len(t.chunks),
		"elapsed", time.Since(start),
	)
	return t, nil
}

func splitMappingLine(line string, lineIndex int) (key, path, classField string, err error) {
	fields := strings.Split(line, "\t")
	switch {
	case len(fields) >= 3:
		key, path, classField = fields[0], fields[1], fields[2]
	case len(fields) == 2:
		key, path, classField = strconv.Itoa(lineIndex), fields[0], fields[1]
	default:
		return "", "", "", fmt.Errorf("invalid mapping line %q, expected 2 or 3 tab-delimited columns", line)
	}
	if path == "" || classField == "" {
		return "", "", "", fmt.Errorf("invalid mapping line %q, empty path or class id", line)
	}
	return key, path, classField, nil
}
