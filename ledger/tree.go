package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/vocdoni/tally-z-sandbox/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// The tree has a fixed depth of types.LedgerTreeMaxLevels. Leaves sit at
// level 0 and fill left to right in append order; the root is the single
// node at the top level. Subtrees that contain no leaf yet take a
// precomputed zero hash, so an append only rewrites the path from the new
// leaf to the root.

// hashNodes computes a domain-tagged interior node hash. The tag keeps leaf
// preimages and interior preimages in disjoint spaces.
func hashNodes(left, right []byte) []byte {
	h := sha256.New()
	h.Write([]byte{types.NodeDomainTag})
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

// zeroHashes[l] is the hash of a complete level-l subtree with no leaves.
var zeroHashes = func() [types.LedgerTreeMaxLevels + 1][]byte {
	var z [types.LedgerTreeMaxLevels + 1][]byte
	z[0] = make([]byte, sha256.Size)
	for l := 1; l <= types.LedgerTreeMaxLevels; l++ {
		z[l] = hashNodes(z[l-1], z[l-1])
	}
	return z
}()

// EmptyRoot is the root of a ledger with no entries.
func EmptyRoot() types.HexBytes {
	root := make(types.HexBytes, sha256.Size)
	copy(root, zeroHashes[types.LedgerTreeMaxLevels])
	return root
}

// nodeKey addresses a tree node by level and index within the level.
func nodeKey(level int, index uint64) []byte {
	key := make([]byte, 9)
	key[0] = byte(level)
	binary.BigEndian.PutUint64(key[1:], index)
	return key
}

// treeNode reads a node hash, falling back to the zero-subtree hash when the
// node was never written. The result is always a private copy.
func treeNode(rd db.Reader, level int, index uint64) ([]byte, error) {
	value, err := rd.Get(nodeKey(level, index))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			value = zeroHashes[level]
		} else {
			return nil, err
		}
	}
	node := make([]byte, len(value))
	copy(node, value)
	return node, nil
}

// insertLeaf writes the leaf at the given index and recomputes the path up
// to the root inside the transaction. Returns the new root.
func insertLeaf(wTx db.WriteTx, index uint64, leaf []byte) ([]byte, error) {
	nTx := prefixeddb.NewPrefixedWriteTx(wTx, nodePrefix)
	cur := leaf
	idx := index
	if err := nTx.Set(nodeKey(0, idx), cur); err != nil {
		return nil, err
	}
	for level := 0; level < types.LedgerTreeMaxLevels; level++ {
		sibling, err := treeNode(nTx, level, idx^1)
		if err != nil {
			return nil, err
		}
		if idx&1 == 0 {
			cur = hashNodes(cur, sibling)
		} else {
			cur = hashNodes(sibling, cur)
		}
		idx >>= 1
		if err := nTx.Set(nodeKey(level+1, idx), cur); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// buildProof collects the sibling path of the leaf at the given index. Each
// position records the side the sibling occupies: when the leaf index bit is
// set the current node is a right child, so the sibling sits on the left.
func buildProof(rd db.Reader, index uint64) (*types.InclusionProof, error) {
	nodes := prefixeddb.NewPrefixedReader(rd, nodePrefix)
	leaf, err := treeNode(nodes, 0, index)
	if err != nil {
		return nil, err
	}
	siblings := make([]types.HexBytes, 0, types.LedgerTreeMaxLevels)
	positions := make([]types.SiblingSide, 0, types.LedgerTreeMaxLevels)
	idx := index
	for level := 0; level < types.LedgerTreeMaxLevels; level++ {
		sibling, err := treeNode(nodes, level, idx^1)
		if err != nil {
			return nil, err
		}
		siblings = append(siblings, sibling)
		if idx&1 == 1 {
			positions = append(positions, types.SiblingLeft)
		} else {
			positions = append(positions, types.SiblingRight)
		}
		idx >>= 1
	}
	root, err := treeNode(nodes, types.LedgerTreeMaxLevels, 0)
	if err != nil {
		return nil, err
	}
	return &types.InclusionProof{
		Leaf:      leaf,
		Siblings:  siblings,
		Positions: positions,
		Root:      root,
	}, nil
}
