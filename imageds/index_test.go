package imageds

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crazypenguincode/CNTK/corpus"
)

func writeMapFile(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600))
	return path
}

func TestBuild_ChunksPartitionSequenceTable(t *testing.T) {
	lines := make([]string, 600)
	for i := range lines {
		lines[i] = fmt.Sprintf("img%d.png\t%d", i, i%10)
	}
	ds, err := New(corpus.NewDescriptor(), writeMapFile(t, lines), 10)
	require.NoError(t, err)
	defer ds.Close()

	chunks := ds.ChunkDescriptions()
	require.Len(t, chunks, 2)

	assert.Equal(t, ChunkID(0), chunks[0].ID)
	assert.Equal(t, 0, chunks[0].StartIndex)
	assert.Equal(t, 512, chunks[0].NumSequences)
	assert.Equal(t, ChunkID(1), chunks[1].ID)
	assert.Equal(t, 512, chunks[1].StartIndex)
	assert.Equal(t, 88, chunks[1].NumSequences)

	// Union of chunk ranges covers [0, N) without gaps or overlaps.
	next := 0
	for _, c := range chunks {
		assert.Equal(t, next, c.StartIndex)
		next += c.NumSequences
	}
	assert.Equal(t, ds.NumSequences(), next)

	seqs, err := ds.SequencesForChunk(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(512), seqs[0].ID)
	assert.Equal(t, uint64(599), seqs[len(seqs)-1].ID)
}

func TestBuild_ThreeColumnFormat(t *testing.T) {
	corp := corpus.NewDescriptor()
	ds, err := New(corp, writeMapFile(t, []string{
		"seqA\timgA.png\t1",
		"seqB\timgB.png\t3",
	}), 5)
	require.NoError(t, err)
	defer ds.Close()

	id, ok := corp.Registry().ID("seqA")
	require.True(t, ok)
	desc, ok := ds.SequenceByKey(Key{Sequence: id})
	require.True(t, ok)
	assert.Equal(t, "imgA.png", desc.Path)
	assert.Equal(t, uint32(1), desc.ClassID)
}

func TestBuild_LegacyFormatKeysAreLineNumbers(t *testing.T) {
	corp := corpus.NewDescriptor()
	ds, err := New(corp, writeMapFile(t, []string{
		"img0.png\t0",
		"img1.png\t4",
	}), 5)
	require.NoError(t, err)
	defer ds.Close()

	id, ok := corp.Registry().ID("1")
	require.True(t, ok)
	desc, ok := ds.SequenceByKey(Key{Sequence: id})
	require.True(t, ok)
	assert.Equal(t, "img1.png", desc.Path)
	assert.Equal(t, uint32(4), desc.ClassID)
}

func TestBuild_ClassIDOutOfRange(t *testing.T) {
	_, err := New(corpus.NewDescriptor(), writeMapFile(t, []string{
		"img1.png\t5",
	}), 5)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 0, fe.Line)
}

func TestBuild_UnparsableClassID(t *testing.T) {
	for _, bad := range []string{"img.png\tcat", "img.png\t-1", "img.png\t"} {
		_, err := New(corpus.NewDescriptor(), writeMapFile(t, []string{bad}), 5)
		var fe *FormatError
		require.ErrorAs(t, err, &fe, bad)
	}
}

func TestBuild_SingleColumnLine(t *testing.T) {
	_, err := New(corpus.NewDescriptor(), writeMapFile(t, []string{"just-a-path.png"}), 5)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestBuild_CorpusExclusionSkipsLines(t *testing.T) {
	corp := corpus.NewRestrictedDescriptor([]string{"keep"})
	ds, err := New(corp, writeMapFile(t, []string{
		"skip\timg0.png\t0",
		"keep\timg1.png\t1",
		"alsoskip\timg2.png\t2",
	}), 5)
	require.NoError(t, err)
	defer ds.Close()

	assert.Equal(t, 1, ds.NumSequences())
	seqs, err := ds.SequencesForChunk(0)
	require.NoError(t, err)
	assert.Equal(t, "img1.png", seqs[0].Path)
}

func TestBuild_MultiViewReplicasShareChunk(t *testing.T) {
	const replicas = 10
	lines := []string{
		"a\timgA.png\t0",
		"b\timgB.png\t1",
		"c\timgC.png\t2",
	}
	ds, err := New(corpus.NewDescriptor(), writeMapFile(t, lines), 5,
		WithMultiViewCrop(replicas))
	require.NoError(t, err)
	defer ds.Close()

	require.Equal(t, replicas*len(lines), ds.NumSequences())

	seqs, err := ds.SequencesForChunk(0)
	require.NoError(t, err)
	for i, s := range seqs {
		want := seqs[(i/replicas)*replicas]
		assert.Equal(t, want.Path, s.Path)
		assert.Equal(t, want.ChunkID, s.ChunkID)
		assert.Equal(t, want.Key, s.Key)
		assert.Equal(t, uint64(i), s.ID)
	}
}

func TestBuild_MultiViewNeverSplitsAcrossChunks(t *testing.T) {
	lines := make([]string, 5)
	for i := range lines {
		lines[i] = fmt.Sprintf("k%d\timg%d.png\t0", i, i)
	}
	ds, err := New(corpus.NewDescriptor(), writeMapFile(t, lines), 5,
		WithMultiViewCrop(3), WithChunkCapacity(4))
	require.NoError(t, err)
	defer ds.Close()

	byChunk := make(map[ChunkID]map[string]bool)
	for _, c := range ds.ChunkDescriptions() {
		seqs, err := ds.SequencesForChunk(c.ID)
		require.NoError(t, err)
		byChunk[c.ID] = make(map[string]bool)
		for _, s := range seqs {
			byChunk[c.ID][s.Path] = true
		}
	}
	// Each path's replicas live in exactly one chunk.
	seen := make(map[string]int)
	for _, paths := range byChunk {
		for p := range paths {
			seen[p]++
		}
	}
	for p, n := range seen {
		assert.Equal(t, 1, n, p)
	}
}

func TestBuild_DuplicateKeyLastWins(t *testing.T) {
	corp := corpus.NewDescriptor()
	ds, err := New(corp, writeMapFile(t, []string{
		"dup\tfirst.png\t0",
		"dup\tsecond.png\t1",
	}), 5)
	require.NoError(t, err)
	defer ds.Close()

	id, ok := corp.Registry().ID("dup")
	require.True(t, ok)
	desc, ok := ds.SequenceByKey(Key{Sequence: id})
	require.True(t, ok)
	assert.Equal(t, "second.png", desc.Path)
	assert.Equal(t, uint64(1), desc.ID)
}

func TestBuild_ContainerSupportDisabled(t *testing.T) {
	_, err := New(corpus.NewDescriptor(), writeMapFile(t, []string{
		"k\tarchive.zip@img.png\t0",
	}), 5, WithContainerSupport(false))
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestBuild_MissingMapFile(t *testing.T) {
	_, err := New(corpus.NewDescriptor(), filepath.Join(t.TempDir(), "absent.txt"), 5)
	require.Error(t, err)
}

func TestNew_ConfigErrors(t *testing.T) {
	mapPath := writeMapFile(t, []string{"img.png\t0"})
	var cfgErr *ConfigError

	_, err := New(corpus.NewDescriptor(), mapPath, 5, WithPrecision(ElementTypeUint8))
	require.ErrorAs(t, err, &cfgErr)

	_, err = New(corpus.NewDescriptor(), mapPath, 5, WithMultiViewCrop(0))
	require.ErrorAs(t, err, &cfgErr)

	_, err = New(corpus.NewDescriptor(), mapPath, 5, WithChunkCapacity(0))
	require.ErrorAs(t, err, &cfgErr)

	_, err = New(corpus.NewDescriptor(), mapPath, 0)
	require.ErrorAs(t, err, &cfgErr)
}

func TestSequenceByKey_NonzeroSampleIndex(t *testing.T) {
	corp := corpus.NewDescriptor()
	ds, err := New(corp, writeMapFile(t, []string{"k\timg.png\t0"}), 5)
	require.NoError(t, err)
	defer ds.Close()

	id, ok := corp.Registry().ID("k")
	require.True(t, ok)

	_, ok = ds.SequenceByKey(Key{Sequence: id, Sample: 1})
	assert.False(t, ok)
	_, ok = ds.SequenceByKey(Key{Sequence: id + 100})
	assert.False(t, ok)
}

func TestStreams(t *testing.T) {
	ds, err := New(corpus.NewDescriptor(), writeMapFile(t, []string{"img.png\t0"}), 12,
		WithPrecision(ElementTypeFloat64))
	require.NoError(t, err)
	defer ds.Close()

	streams := ds.Streams()
	require.Len(t, streams, 2)

	assert.Equal(t, "features", streams[0].Name)
	assert.Equal(t, StorageDense, streams[0].Storage)
	assert.Equal(t, ElementTypeUnknown, streams[0].ElementType)

	assert.Equal(t, "labels", streams[1].Name)
	assert.Equal(t, StorageSparseCSC, streams[1].Storage)
	assert.Equal(t, ElementTypeFloat64, streams[1].ElementType)
	assert.Equal(t, []int{12}, streams[1].SampleShape)
}
