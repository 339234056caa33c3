package tachyon

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testProducer struct {
	sch     *Schema
	records []Record
	pos     int
}

func (p *testProducer) Schema() *Schema { return p.sch }

func (p *testProducer) Next() (Record, bool, error) {
	if p.pos >= len(p.records) {
		return Record{}, false, nil
	}
	r := p.records[p.pos]
	p.pos++
	return r, true, nil
}

func testArchiveSchema() *Schema {
	return &Schema{
		Contigs: []ContigInfo{{Name: "chr1", Length: 1_000_000}, {Name: "chr2", Length: 500_000}},
	}
}

func rec(contigID, pos uint32) Record {
	return Record{ContigID: contigID, Position: pos, Alleles: [][]byte{[]byte("A"), []byte("G")}}
}

func importTempArchive(t *testing.T, p *testProducer, opts ImportOptions) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.tcy")
	_, err := Import(context.Background(), path, p, opts)
	require.NoError(t, err)
	return path
}

func TestImportOpen_RoundTripsSchemaAndVersion(t *testing.T) {
	p := &testProducer{sch: testArchiveSchema(), records: []Record{rec(0, 10), rec(1, 5)}}
	path := importTempArchive(t, p, ImportOptions{})

	a, err := Open(path, ViewOptions{})
	require.NoError(t, err)
	defer a.Close()

	major, minor, patch := a.Version()
	require.Equal(t, uint8(1), major)
	require.Equal(t, uint8(0), minor)
	require.Equal(t, uint8(0), patch)
	require.Len(t, a.Schema().Samples, 0)
	require.Len(t, a.Schema().Contigs, 2)
}

func TestArchive_RecordsReturnsEveryRecord(t *testing.T) {
	p := &testProducer{
		sch: testArchiveSchema(),
		records: []Record{
			rec(0, 10), rec(0, 20), rec(0, 30),
			rec(1, 5), rec(1, 15),
		},
	}
	path := importTempArchive(t, p, ImportOptions{})

	a, err := Open(path, ViewOptions{})
	require.NoError(t, err)
	defer a.Close()

	it, err := a.Records(context.Background())
	require.NoError(t, err)
	var positions []uint32
	for it.Next() {
		positions = append(positions, it.Record().Position)
	}
	require.Len(t, positions, 5)
}

func TestArchive_QueryFiltersByContigAndRange(t *testing.T) {
	p := &testProducer{
		sch: testArchiveSchema(),
		records: []Record{
			rec(0, 10), rec(0, 100), rec(0, 1000),
			rec(1, 50),
		},
	}
	path := importTempArchive(t, p, ImportOptions{})
	a, err := Open(path, ViewOptions{})
	require.NoError(t, err)
	defer a.Close()

	it, err := a.Query(context.Background(), "chr1", 0, 500)
	require.NoError(t, err)
	var positions []uint32
	for it.Next() {
		positions = append(positions, it.Record().Position)
	}
	require.ElementsMatch(t, []uint32{10, 100}, positions)
}

func TestArchive_QueryUnknownContigReturnsEmpty(t *testing.T) {
	p := &testProducer{sch: testArchiveSchema(), records: []Record{rec(0, 10)}}
	path := importTempArchive(t, p, ImportOptions{})

	a, err := Open(path, ViewOptions{})
	require.NoError(t, err)
	defer a.Close()

	it, err := a.Query(context.Background(), "chrZZZ", 0, 100)
	require.NoError(t, err)
	require.False(t, it.Next())
}

func TestOpen_RejectsTamperedTrailingMagic(t *testing.T) {
	p := &testProducer{sch: testArchiveSchema(), records: []Record{rec(0, 10)}}
	path := importTempArchive(t, p, ImportOptions{})

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	fi, err := f.Stat()
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0xFF}, fi.Size()-1)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Open(path, ViewOptions{})
	require.Error(t, err)
	require.Equal(t, ErrFormatMagicMismatch, Classify(err))
}
