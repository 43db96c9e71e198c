package fluid

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnership(t *testing.T) {
	/*
	   show
	    |
	   parent ─owns─> first (reads a) | second (reads b)
	*/
	t.Run("switching branches disposes the old child", func(t *testing.T) {
		rctx := &ReactiveContext{}
		show := CreateSignal(rctx, true)
		a := CreateSignal(rctx, "a")
		b := CreateSignal(rctx, "b")

		var out []string
		parent, err := CreateEffect(rctx, func() error {
			if show.Read() {
				_, err := CreateEffect(rctx, func() error {
					out = append(out, "first "+a.Read())
					return OnCleanup(rctx, func() {
						out = append(out, "cleanup first")
					})
				})
				return err
			}
			_, err := CreateEffect(rctx, func() error {
				out = append(out, "second "+b.Read())
				return nil
			})
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"first a"}, out)
		assert.Equal(t, 1, parent.Children())

		require.NoError(t, show.Write(false))
		assert.Equal(t, []string{"first a", "cleanup first", "second b"}, out)
		assert.Equal(t, 1, parent.Children())
		assert.Equal(t, 0, a.Subscribers())

		require.NoError(t, a.Write("x"))
		require.NoError(t, b.Write("y"))
		assert.Equal(t, []string{"first a", "cleanup first", "second b", "second y"}, out)
	})

	/*
	   s ──> parent ─owns─> child
	   └───────────────────> child
	*/
	t.Run("disposed child queued in the same commit never runs", func(t *testing.T) {
		rctx := &ReactiveContext{}
		s := CreateSignal(rctx, 0)

		childRuns := 0
		var children []*Computation
		_, err := CreateEffect(rctx, func() error {
			_ = s.Read()
			child, err := CreateEffect(rctx, func() error {
				childRuns++
				_ = s.Read()
				return nil
			})
			children = append(children, child)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 1, childRuns)
		assert.Equal(t, 2, s.Subscribers())

		require.NoError(t, s.Write(1))
		assert.Equal(t, 2, childRuns)
		require.Len(t, children, 2)
		assert.True(t, children[0].Disposed())
		assert.False(t, children[1].Disposed())
		assert.Equal(t, 2, s.Subscribers())
	})

	t.Run("siblings run in creation order", func(t *testing.T) {
		rctx := &ReactiveContext{}
		s := CreateSignal(rctx, 0)

		var order []int
		for i := 0; i < 5; i++ {
			i := i
			_, err := CreateEffect(rctx, func() error {
				_ = s.Read()
				order = append(order, i)
				return nil
			})
			require.NoError(t, err)
		}
		order = order[:0]

		require.NoError(t, s.Write(1))
		assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	})

	t.Run("dispose cascades", func(t *testing.T) {
		rctx := &ReactiveContext{}
		s := CreateSignal(rctx, 0)

		var cleaned []string
		var leaf *Computation
		root, err := CreateRoot(rctx, func() error {
			_, err := CreateEffect(rctx, func() error {
				_ = s.Read()
				var err error
				leaf, err = CreateEffect(rctx, func() error {
					_ = s.Read()
					return OnCleanup(rctx, func() { cleaned = append(cleaned, "leaf") })
				})
				if err != nil {
					return err
				}
				return OnCleanup(rctx, func() { cleaned = append(cleaned, "middle") })
			})
			return err
		}, WithName("root"))
		require.NoError(t, err)
		assert.Equal(t, "root", root.Name())

		root.Dispose()
		assert.True(t, root.Disposed())
		assert.True(t, leaf.Disposed())
		assert.Equal(t, []string{"middle", "leaf"}, cleaned)
		assert.Equal(t, 0, s.Subscribers())

		root.Dispose()
		require.NoError(t, s.Write(1))
		assert.Equal(t, []string{"middle", "leaf"}, cleaned)
	})

	t.Run("cleanups run once per run", func(t *testing.T) {
		rctx := &ReactiveContext{}
		s := CreateSignal(rctx, 0)

		cleanups := 0
		c, err := CreateEffect(rctx, func() error {
			_ = s.Read()
			return OnCleanup(rctx, func() { cleanups++ })
		})
		require.NoError(t, err)

		require.NoError(t, s.Write(1))
		require.NoError(t, s.Write(2))
		assert.Equal(t, 2, cleanups)

		c.Dispose()
		assert.Equal(t, 3, cleanups)
		assert.Zero(t, c.Runs())
	})

	t.Run("stale handles stay dead after slot reuse", func(t *testing.T) {
		rctx := &ReactiveContext{}
		first, err := CreateRoot(rctx, func() error { return nil }, WithName("first"))
		require.NoError(t, err)
		first.Dispose()

		second, err := CreateRoot(rctx, func() error { return nil }, WithName("second"))
		require.NoError(t, err)

		assert.True(t, first.Disposed())
		assert.Empty(t, first.Name())
		assert.False(t, second.Disposed())
		assert.Equal(t, "second", second.Name())

		first.Dispose()
		assert.False(t, second.Disposed())
	})

	/*
	   x ──> parent ─owns─> memo
	   s ──────────────────> reader <── first memo
	*/
	t.Run("readers of a memo disposed mid-commit still run", func(t *testing.T) {
		rctx := &ReactiveContext{}
		x := CreateSignal(rctx, 0, WithName("x"))
		s := CreateSignal(rctx, 0, WithName("s"))

		var memos []*Memo[int]
		_, err := CreateRoot(rctx, func() error {
			_ = x.Read()
			m, err := CreateMemo(rctx, func() (int, error) {
				return x.Read() * 10, nil
			})
			memos = append(memos, m)
			return err
		})
		require.NoError(t, err)

		var seen []int
		_, err = CreateRoot(rctx, func() error {
			_ = memos[0].Read()
			seen = append(seen, s.Read())
			return nil
		})
		require.NoError(t, err)

		require.NoError(t, Batch(rctx, func() error {
			if err := x.Write(2); err != nil {
				return err
			}
			return s.Write(7)
		}))
		assert.Equal(t, []int{0, 7}, seen)
		require.Len(t, memos, 2)
		assert.True(t, memos[0].Computation().Disposed())
		assert.Equal(t, Clean, memos[0].State())
		assert.Equal(t, 20, memos[1].Peek())

		require.NoError(t, s.Write(8))
		assert.Equal(t, []int{0, 7, 8}, seen)
	})

	t.Run("disposing a stale memo inside a batch", func(t *testing.T) {
		rctx := &ReactiveContext{}
		x := CreateSignal(rctx, 1)
		s := CreateSignal(rctx, 0)
		m, err := CreateMemo(rctx, func() (int, error) {
			return x.Read() + 1, nil
		})
		require.NoError(t, err)

		var seen []int
		_, err = CreateEffect(rctx, func() error {
			seen = append(seen, m.Read()*100+s.Read())
			return nil
		})
		require.NoError(t, err)

		require.NoError(t, Batch(rctx, func() error {
			if err := x.Write(5); err != nil {
				return err
			}
			if err := s.Write(3); err != nil {
				return err
			}
			assert.Equal(t, Stale, m.State())
			m.Computation().Dispose()
			assert.Equal(t, Clean, m.State())
			return nil
		}))
		assert.Equal(t, []int{200, 203}, seen)
		assert.Equal(t, 2, m.Peek())
	})
}

func TestErrors(t *testing.T) {
	t.Run("cleanup outside a computation", func(t *testing.T) {
		rctx := &ReactiveContext{}
		err := OnCleanup(rctx, func() {})
		require.ErrorIs(t, err, ErrCleanupOutsideComputation)
	})

	t.Run("context is restored after a failure", func(t *testing.T) {
		rctx := &ReactiveContext{}
		s := CreateSignal(rctx, 0)
		boom := errors.New("boom")

		_, err := CreateEffect(rctx, func() error {
			if s.Read() > 0 {
				return boom
			}
			return nil
		}, WithName("fragile"))
		require.NoError(t, err)

		err = s.Write(1)
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "execute fragile")

		assert.False(t, rctx.IsBatching())
		require.ErrorIs(t, OnCleanup(rctx, func() {}), ErrCleanupOutsideComputation)

		other := CreateSignal(rctx, 0)
		_ = other.Read()
		assert.Equal(t, 0, other.Subscribers())
	})

	t.Run("context is restored after a panic", func(t *testing.T) {
		rctx := &ReactiveContext{}

		assert.Panics(t, func() {
			_, _ = CreateEffect(rctx, func() error {
				panic("boom")
			})
		})
		require.ErrorIs(t, OnCleanup(rctx, func() {}), ErrCleanupOutsideComputation)
	})

	t.Run("failing effect is not created", func(t *testing.T) {
		rctx := &ReactiveContext{}
		s := CreateSignal(rctx, 0)

		c, err := CreateEffect(rctx, func() error {
			return fmt.Errorf("bad input %d", s.Read())
		})
		require.Error(t, err)
		assert.Nil(t, c)
		assert.Equal(t, 0, s.Subscribers())
	})
}
