package trie

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolBeginCommit(t *testing.T) {
	p := NewPool(NewLayer())
	res := NewLayerResolver(p.Top())
	require.Nil(t, Merge(p.Top(), res, RootVid, path32("base"), RawPayload([]byte("b"))))

	tx := p.Begin()
	res2 := NewLayerResolver(p.Top())
	require.Nil(t, Merge(p.Top(), res2, RootVid, path32("tx"), RawPayload([]byte("t"))))

	require.Nil(t, p.Commit(tx))
	require.Equal(t, uint64(0), p.Current().TxUid())

	_, ok := p.Top().getVertex(RootVid)
	require.True(t, ok)
}

func TestPoolBeginRollback(t *testing.T) {
	p := NewPool(NewLayer())
	res := NewLayerResolver(p.Top())
	require.Nil(t, Merge(p.Top(), res, RootVid, path32("base"), RawPayload([]byte("b"))))
	baseRoot, _ := p.Top().getVertex(RootVid)

	tx := p.Begin()
	res2 := NewLayerResolver(p.Top())
	require.Nil(t, Merge(p.Top(), res2, RootVid, path32("tx"), RawPayload([]byte("t"))))

	require.Nil(t, p.Rollback(tx))

	afterRoot, ok := p.Top().getVertex(RootVid)
	require.True(t, ok)
	require.Equal(t, baseRoot.Prefix, afterRoot.Prefix)
}

func TestPoolCommitRequiresTop(t *testing.T) {
	p := NewPool(NewLayer())
	tx1 := p.Begin()
	_ = p.Begin() // tx1 is no longer top

	err := p.Commit(tx1)
	require.NotNil(t, err)
	require.Equal(t, ErrTxNotTopTx, err.Kind)
}

func TestExecuteRestoresOnPanic(t *testing.T) {
	p := NewPool(NewLayer())
	res := NewLayerResolver(p.Top())
	require.Nil(t, Merge(p.Top(), res, RootVid, path32("base"), RawPayload([]byte("b"))))

	before := p.Top()
	tx := p.Current()

	func() {
		defer func() { recover() }()
		_ = p.Execute(tx, func(top *Layer) error {
			res := NewLayerResolver(top)
			if err := Merge(top, res, RootVid, path32("during"), RawPayload([]byte("d"))); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	require.False(t, p.IsExecLocked())
	require.Same(t, before, p.Top())
}

func TestExecuteRestoresOnError(t *testing.T) {
	p := NewPool(NewLayer())
	tx := p.Current()
	before := p.Top()

	err := p.Execute(tx, func(top *Layer) error {
		return errors.New("boom")
	})
	require.NotNil(t, err)
	require.False(t, p.IsExecLocked())
	require.Same(t, before, p.Top())
}

func TestExecuteForbidsNesting(t *testing.T) {
	p := NewPool(NewLayer())
	tx := p.Current()

	err := p.Execute(tx, func(top *Layer) error {
		inner := p.Execute(p.Current(), func(*Layer) error { return nil })
		require.NotNil(t, inner)
		return nil
	})
	require.Nil(t, err)
}

func TestCheckWritableDuringExecute(t *testing.T) {
	p := NewPool(NewLayer())
	tx := p.Current()
	_ = p.Execute(tx, func(top *Layer) error {
		err := p.CheckWritable()
		require.NotNil(t, err)
		require.Equal(t, ErrTxExecDirectiveLocked, err.Kind)
		return nil
	})
	require.Nil(t, p.CheckWritable())
}
