package gallery

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FACEATTEND/helper"
	"FACEATTEND/matcher"
	"FACEATTEND/models"
)

type memorySource struct {
	mu       sync.Mutex
	students []models.Student
	lists    atomic.Int32
	fail     error
}

func (m *memorySource) ListStudents(ctx context.Context) ([]models.Student, error) {
	m.lists.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := make([]models.Student, len(m.students))
	copy(out, m.students)
	return out, nil
}

func (m *memorySource) ListByName(ctx context.Context) ([]models.Student, error) {
	out, err := m.ListStudents(ctx)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (m *memorySource) UpsertStudent(ctx context.Context, name string, encoding []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.students {
		if m.students[i].Name == name {
			m.students[i].Encoding = encoding
			return false, nil
		}
	}
	m.students = append(m.students, models.Student{Id: int64(len(m.students) + 1), Name: name, Encoding: encoding})
	return true, nil
}

func TestCandidates_LoadsOnceInEnrollmentOrder(t *testing.T) {
	src := &memorySource{students: []models.Student{
		{Id: 1, Name: "Zoe", Encoding: helper.EncodeDescriptor([]float64{1, 0})},
		{Id: 2, Name: "Adam", Encoding: helper.EncodeDescriptor([]float64{0, 1})},
	}}
	g := New(src)
	ctx := context.Background()

	c, err := g.Candidates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []matcher.Candidate{
		{Name: "Zoe", Descriptor: []float64{1, 0}},
		{Name: "Adam", Descriptor: []float64{0, 1}},
	}, c)

	_, err = g.Candidates(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, src.lists.Load())
	assert.Equal(t, 2, g.Len())
}

func TestCandidates_CorruptRowIsKept(t *testing.T) {
	src := &memorySource{students: []models.Student{
		{Id: 1, Name: "Broken", Encoding: []byte{1, 2, 3}},
	}}

	c, err := New(src).Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, c, 1)
	assert.Equal(t, "Broken", c[0].Name)
	assert.Empty(t, c[0].Descriptor)
}

func TestUpsert_ReadAfterWrite(t *testing.T) {
	src := &memorySource{}
	g := New(src)
	ctx := context.Background()

	c, err := g.Candidates(ctx)
	require.NoError(t, err)
	assert.Empty(t, c)

	created, err := g.Upsert(ctx, "A", []float64{1, 2})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = g.Upsert(ctx, "A", []float64{3, 4})
	require.NoError(t, err)
	assert.False(t, created)

	c, err = g.Candidates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []matcher.Candidate{{Name: "A", Descriptor: []float64{3, 4}}}, c)
}

func TestCandidates_SourceError(t *testing.T) {
	src := &memorySource{fail: errors.New("connection refused")}
	g := New(src)

	_, err := g.Candidates(context.Background())
	require.Error(t, err)

	src.mu.Lock()
	src.fail = nil
	src.mu.Unlock()

	c, err := g.Candidates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, c)
}

func TestNames(t *testing.T) {
	src := &memorySource{}
	g := New(src)
	ctx := context.Background()
	for _, n := range []string{"Carol", "Alice", "Bob"} {
		_, err := g.Upsert(ctx, n, []float64{0})
		require.NoError(t, err)
	}

	students, err := g.Names(ctx)
	require.NoError(t, err)
	var names []string
	for _, s := range students {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names)
}

func TestCandidates_Concurrent(t *testing.T) {
	src := &memorySource{students: []models.Student{{Id: 1, Name: "A", Encoding: helper.EncodeDescriptor([]float64{1})}}}
	g := New(src)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := g.Candidates(context.Background())
			assert.NoError(t, err)
			assert.Len(t, c, 1)
		}()
	}
	wg.Wait()
}

func TestUpsert_ReloadFailureKeepsWrite(t *testing.T) {
	src := &memorySource{}
	g := New(src)
	ctx := context.Background()

	src.mu.Lock()
	src.fail = errors.New("connection reset")
	src.mu.Unlock()

	created, err := g.Upsert(ctx, "A", []float64{1, 2})
	require.NoError(t, err)
	assert.True(t, created)

	src.mu.Lock()
	src.fail = nil
	src.mu.Unlock()

	c, err := g.Candidates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []matcher.Candidate{{Name: "A", Descriptor: []float64{1, 2}}}, c)
}

func TestSizeObserver(t *testing.T) {
	src := &memorySource{students: []models.Student{{Id: 1, Name: "A", Encoding: helper.EncodeDescriptor([]float64{1})}}}
	var sizes []int
	g := New(src, WithSizeObserver(func(n int) { sizes = append(sizes, n) }))
	ctx := context.Background()

	require.NoError(t, g.Refresh(ctx))
	_, err := g.Upsert(ctx, "B", []float64{2})
	require.NoError(t, err)
	_, err = g.Upsert(ctx, "B", []float64{3})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 2}, sizes)
}
