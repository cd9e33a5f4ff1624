package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikhailv/fnstream/algebra"
	"github.com/mikhailv/fnstream/eventloop"
	"github.com/mikhailv/fnstream/option"
)

func isEven(v int) bool { return v%2 == 0 }

func TestSequential_ToArray(t *testing.T) {
	loop := eventloop.NewVirtual()
	s := Sequential(loop, []int{1, 2, 3, 4}, 0)
	arr := s.ToArray()

	assert.Zero(t, arr.Len(), "nothing is emitted before the loop runs")
	loop.Advance(10 * time.Millisecond)

	assert.Equal(t, []int{1, 2, 3, 4}, arr.Values())
	assert.True(t, s.Completed())
	assert.Zero(t, loop.Pending(), "timer is disarmed after the last value")
}

func TestCombinators(t *testing.T) {
	tests := []struct {
		name  string
		input []int
		build func(s *Stream[int]) *Stream[int]
		want  []int
	}{
		{
			name:  "filter even",
			input: []int{1, 2, 3, 4},
			build: func(s *Stream[int]) *Stream[int] { return s.Filter(isEven) },
			want:  []int{2, 4},
		},
		{
			name:  "map double",
			input: []int{1, 2, 3, 4},
			build: func(s *Stream[int]) *Stream[int] { return Map(s, func(v int) int { return v * 2 }) },
			want:  []int{2, 4, 6, 8},
		},
		{
			name:  "reduce sum",
			input: []int{1, 2, 3},
			build: func(s *Stream[int]) *Stream[int] {
				return Reduce(s, 0, func(acc, v int) int { return acc + v })
			},
			want: []int{1, 3, 6},
		},
		{
			name:  "chain keeps odd squares",
			input: []int{1, 2, 3, 4, 5},
			build: func(s *Stream[int]) *Stream[int] {
				return Chain(s, func(v int) option.Option[int] {
					if isEven(v) {
						return option.None[int]()
					}
					return option.Some(v * v)
				})
			},
			want: []int{1, 9, 25},
		},
		{
			name:  "filter everything",
			input: []int{1, 3},
			build: func(s *Stream[int]) *Stream[int] { return s.Filter(isEven) },
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loop := eventloop.NewVirtual()
			out := tt.build(Sequential(loop, tt.input, 0))
			arr := out.ToArray()
			loop.Advance(time.Second)

			assert.Equal(t, tt.want, arr.Values())
			assert.True(t, out.Completed(), "derived stream completes with its source")
		})
	}
}

func TestMap_Laws(t *testing.T) {
	loop := eventloop.NewVirtual()
	src := Sequential(loop, []int{3, 1, 4, 1, 5, 9, 2, 6}, time.Millisecond)

	f := func(v int) int { return v + 1 }
	g := func(v int) int { return v * 3 }

	plain := src.ToArray()
	identity := Map(src, func(v int) int { return v }).ToArray()
	composedTwice := Map(Map(src, f), g).ToArray()
	composedOnce := Map(src, func(v int) int { return g(f(v)) }).ToArray()

	loop.Advance(time.Second)

	require.Len(t, plain.Values(), 8)
	assert.Equal(t, plain.Values(), identity.Values())
	assert.Equal(t, composedOnce.Values(), composedTwice.Values())
}

func TestFilter_Subsequence(t *testing.T) {
	loop := eventloop.NewVirtual()
	input := []int{5, 8, 2, 7, 10, 3, 4}
	src := Sequential(loop, input, time.Millisecond)
	arr := src.Filter(isEven).ToArray()
	loop.Advance(time.Second)

	var want []int
	for _, v := range input {
		if isEven(v) {
			want = append(want, v)
		}
	}
	assert.Equal(t, want, arr.Values())
}

func TestReduce_IndependentAccumulators(t *testing.T) {
	loop := eventloop.NewVirtual()
	src := Sequential(loop, []int{1, 2, 3}, 0)
	sum := func(acc, v int) int { return acc + v }

	first := Reduce(src, 0, sum).ToArray()
	second := Reduce(src, 100, sum).ToArray()
	loop.Advance(time.Second)

	assert.Equal(t, []int{1, 3, 6}, first.Values())
	assert.Equal(t, []int{101, 103, 106}, second.Values())
}

func TestReduce_ChangesType(t *testing.T) {
	loop := eventloop.NewVirtual()
	src := Sequential(loop, []string{"a", "bb", "ccc"}, 0)
	arr := Reduce(src, 0, func(acc int, v string) int { return acc + len(v) }).ToArray()
	loop.Advance(time.Second)

	assert.Equal(t, []int{1, 3, 6}, arr.Values())
}

func TestConcatEmpty(t *testing.T) {
	loop := eventloop.NewVirtual()
	r := algebra.Default()

	words := Sequential(loop, []string{"a", "b"}, 0)
	concat, err := words.Concat(r, "!")
	require.NoError(t, err)
	empty, err := words.Empty(r)
	require.NoError(t, err)

	concatArr := concat.ToArray()
	emptyArr := empty.ToArray()
	loop.Advance(time.Second)

	assert.Equal(t, []string{"a!", "b!"}, concatArr.Values())
	assert.Equal(t, []string{"", ""}, emptyArr.Values())
}

func TestConcat_NoInstance(t *testing.T) {
	type point struct{ X, Y int }

	loop := eventloop.NewVirtual()
	src := Sequential(loop, []point{{1, 2}}, 0)

	_, err := src.Concat(algebra.Default(), point{})
	assert.ErrorIs(t, err, algebra.ErrNoInstance)

	_, err = src.Empty(algebra.Default())
	assert.ErrorIs(t, err, algebra.ErrNoInstance)
}

func TestForeach(t *testing.T) {
	loop := eventloop.NewVirtual()
	var events []string
	src := Sequential(loop, []int{1, 2}, 0)
	out := src.Foreach(func(v int) {
		events = append(events, "effect")
	})
	out.Listen(func(v int) {
		events = append(events, "downstream")
	})
	arr := out.ToArray()
	loop.Advance(time.Second)

	assert.Equal(t, []string{"effect", "downstream", "effect", "downstream"}, events)
	assert.Equal(t, []int{1, 2}, arr.Values())
}

func TestNoReplay(t *testing.T) {
	loop := eventloop.NewVirtual()
	src := Sequential(loop, []int{1, 2, 3, 4, 5}, 10*time.Millisecond)
	early := src.ToArray()

	loop.Advance(25 * time.Millisecond)
	require.Equal(t, []int{1, 2}, early.Values())

	late := src.ToArray()
	lateMapped := Map(src, func(v int) int { return -v }).ToArray()
	loop.Advance(time.Second)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, early.Values())
	assert.Equal(t, []int{3, 4, 5}, late.Values())
	assert.Equal(t, []int{-3, -4, -5}, lateMapped.Values())
}

func TestNew_Hot(t *testing.T) {
	loop := eventloop.NewVirtual()
	built := 0
	s, err := New(func(emit func(int), done func()) (func(), error) {
		built++
		emit(0) // nobody is listening yet
		stop := loop.AfterFunc(time.Millisecond, func() {
			emit(1)
			done()
		})
		return stop, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, built, "build runs once, at construction")

	arr := s.ToArray()
	loop.Advance(time.Second)

	assert.Equal(t, []int{1}, arr.Values())
	assert.True(t, s.Completed())
	assert.Equal(t, 1, built)
}

func TestNew_Error(t *testing.T) {
	boom := errors.New("boom")
	s, err := New(func(emit func(int), done func()) (func(), error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, s)
}

func TestListenerFaultIsolation(t *testing.T) {
	loop := eventloop.NewVirtual()
	src := Sequential(loop, []int{1, 2, 3}, 0)
	src.Listen(func(v int) {
		if v == 2 {
			panic("listener failure")
		}
	})
	arr := src.ToArray()
	loop.Advance(time.Second)

	assert.Equal(t, []int{1, 2, 3}, arr.Values())
}

func TestCancel_Derived(t *testing.T) {
	loop := eventloop.NewVirtual()
	src := Sequential(loop, []int{1, 2, 3}, 10*time.Millisecond)
	all := src.ToArray()
	mapped := Map(src, func(v int) int { return v * 10 })
	partial := mapped.ToArray()

	loop.Advance(15 * time.Millisecond)
	mapped.Cancel()
	loop.Advance(time.Second)

	assert.Equal(t, []int{10}, partial.Values())
	assert.True(t, mapped.Completed())
	assert.Equal(t, []int{1, 2, 3}, all.Values(), "cancelling a derived stream leaves its source running")
}

func TestDone(t *testing.T) {
	loop := eventloop.NewVirtual()
	src := Sequential(loop, []int{1}, time.Millisecond)
	mapped := Map(src, func(v int) int { return v })

	completed := 0
	mapped.OnComplete(func() { completed++ })

	select {
	case <-mapped.Done():
		t.Fatal("completed before production")
	default:
	}

	loop.Advance(time.Second)
	<-mapped.Done()
	assert.Equal(t, 1, completed)

	late := false
	mapped.OnComplete(func() { late = true })
	assert.True(t, late)
}
