//go:build e2e

package e2e

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribefs/scribe/internal/protocol"
	"github.com/scribefs/scribe/pkg/client"
)

// TestCollaborativeEditing walks the full two-user workflow: create, edit,
// share, concurrent edits on different sentences, checkpoints and cleanup.
func TestCollaborativeEditing(t *testing.T) {
	cluster := StartCluster(t, 2)
	alice := cluster.Client("alice")
	bob := cluster.Client("bob")

	ack, err := alice.Create("story.txt")
	require.NoError(t, err)
	require.Equal(t, "File created", ack)

	_, err = alice.Write("story.txt", 0, []client.WordEdit{
		{Index: 0, Text: "Once"},
		{Index: 1, Text: "upon"},
		{Index: 2, Text: "a"},
		{Index: 3, Text: "time."},
	})
	require.NoError(t, err)

	t.Run("sharing", func(t *testing.T) {
		_, err := bob.Read("story.txt")
		assert.EqualValues(t, protocol.CodePermissionDenied, protocol.CodeOf(err))

		_, err = bob.RequestAccess("story.txt", protocol.PermRead|protocol.PermWrite)
		require.NoError(t, err)

		pending, err := alice.ViewRequests()
		require.NoError(t, err)
		assert.Contains(t, pending, "bob requests read+write on story.txt")

		_, err = alice.Grant("story.txt", "bob", protocol.PermRead|protocol.PermWrite)
		require.NoError(t, err)

		content, err := bob.Read("story.txt")
		require.NoError(t, err)
		assert.Equal(t, "Once upon a time.", content)
	})

	t.Run("concurrent edits on different sentences", func(t *testing.T) {
		_, err := bob.Write("story.txt", 1, []client.WordEdit{
			{Index: 0, Text: "A"},
			{Index: 1, Text: "dragon"},
			{Index: 2, Text: "appeared."},
		})
		require.NoError(t, err)

		_, err = alice.Write("story.txt", 0, []client.WordEdit{{Index: 0, Text: "Twice"}})
		require.NoError(t, err)

		content, err := alice.Read("story.txt")
		require.NoError(t, err)
		assert.Equal(t, "Twice upon a time. A dragon appeared.", content)
	})

	t.Run("statistics and streaming", func(t *testing.T) {
		info, err := alice.Info("story.txt")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(info, "Words: 7 | Characters: 37 | Sentences: 2"), info)

		var words []string
		require.NoError(t, bob.Stream("story.txt", func(w string) { words = append(words, w) }))
		assert.Equal(t, "Twice upon a time. A dragon appeared.", strings.Join(words, " "))
	})

	t.Run("checkpoints", func(t *testing.T) {
		ack, err := alice.CheckpointCreate("story.txt", "draft")
		require.NoError(t, err)
		assert.Equal(t, "Checkpoint 'draft' created", ack)

		_, err = alice.Write("story.txt", 0, []client.WordEdit{{Index: 0, Text: "Thrice"}})
		require.NoError(t, err)

		list, err := alice.CheckpointList("story.txt")
		require.NoError(t, err)
		assert.Contains(t, list, "draft")

		ack, err = alice.Revert("story.txt", "draft")
		require.NoError(t, err)
		assert.Equal(t, "Reverted to checkpoint 'draft'", ack)

		content, _ := alice.Read("story.txt")
		assert.Equal(t, "Twice upon a time. A dragon appeared.", content)
	})

	t.Run("only the owner deletes", func(t *testing.T) {
		_, err := bob.Delete("story.txt")
		assert.EqualValues(t, protocol.CodeNotOwner, protocol.CodeOf(err))

		_, err = alice.Delete("story.txt")
		require.NoError(t, err)

		_, err = alice.Read("story.txt")
		assert.EqualValues(t, protocol.CodeFileNotFound, protocol.CodeOf(err))
	})
}

// TestSentenceLockConflict drives the lock protocol directly: a held lock
// blocks other writers of that sentence, other sentences stay writable, and
// closing the holder's session releases the lock.
func TestSentenceLockConflict(t *testing.T) {
	cluster := StartCluster(t, 1)
	alice := cluster.Client("alice")
	bob := cluster.Client("bob")

	_, err := alice.Create("shared.txt")
	require.NoError(t, err)
	_, err = alice.Write("shared.txt", 0, []client.WordEdit{{Index: 0, Text: "One."}})
	require.NoError(t, err)
	_, err = alice.Write("shared.txt", 1, []client.WordEdit{{Index: 0, Text: "Two."}})
	require.NoError(t, err)
	_, err = alice.Grant("shared.txt", "bob", protocol.PermRead|protocol.PermWrite)
	require.NoError(t, err)

	holder := cluster.rawClient("alice")
	resp := holder.call(protocol.TagWriteLock, "shared.txt", "0")
	require.EqualValues(t, protocol.CodeSuccess, resp.ErrorCode, resp.ErrorMsg)

	t.Run("locked sentence rejects other writers", func(t *testing.T) {
		_, err := bob.Write("shared.txt", 0, []client.WordEdit{{Index: 0, Text: "Mine."}})
		assert.EqualValues(t, protocol.CodeLocked, protocol.CodeOf(err))
	})

	t.Run("holder reacquires its own lock", func(t *testing.T) {
		resp := holder.call(protocol.TagWriteLock, "shared.txt", "0")
		assert.EqualValues(t, protocol.CodeSuccess, resp.ErrorCode, resp.ErrorMsg)
	})

	t.Run("other sentences stay writable", func(t *testing.T) {
		_, err := bob.Write("shared.txt", 1, []client.WordEdit{{Index: 0, Text: "Yours."}})
		assert.NoError(t, err)
	})

	t.Run("session close releases the lock", func(t *testing.T) {
		holder.close()
		require.Eventually(t, func() bool {
			return cluster.Service.Locks().Count() == 0
		}, 5*time.Second, 10*time.Millisecond, "lock not released on disconnect")

		_, err := bob.Write("shared.txt", 0, []client.WordEdit{{Index: 0, Text: "Free."}})
		assert.NoError(t, err)
	})
}

// TestReplicaFailover writes through the primary, then serves reads from the
// replica when the primary goes away.
func TestReplicaFailover(t *testing.T) {
	cluster := StartCluster(t, 2)
	alice := cluster.Client("alice")

	_, err := alice.Create("critical.txt")
	require.NoError(t, err)
	_, err = alice.Write("critical.txt", 0, []client.WordEdit{
		{Index: 0, Text: "Survives"},
		{Index: 1, Text: "failures."},
	})
	require.NoError(t, err)

	primary := findPrimary(t, cluster)

	t.Run("transport failover with a dead process", func(t *testing.T) {
		cluster.StopNode(primary)

		content, err := alice.Read("critical.txt")
		require.NoError(t, err)
		assert.Equal(t, "Survives failures.", content)
	})

	t.Run("coordinator promotes the replica once the node is marked dead", func(t *testing.T) {
		require.NoError(t, cluster.Service.Registry().SetAlive(primary.ID, false))

		content, err := alice.Read("critical.txt")
		require.NoError(t, err)
		assert.Equal(t, "Survives failures.", content)

		// Writes land on the promoted replica.
		_, err = alice.Write("critical.txt", 0, []client.WordEdit{{Index: 0, Text: "Outlives"}})
		require.NoError(t, err)
		content, _ = alice.Read("critical.txt")
		assert.Equal(t, "Outlives failures.", content)
	})

	t.Run("new files place on the surviving node", func(t *testing.T) {
		ack, err := alice.Create("fresh.txt")
		require.NoError(t, err)
		assert.Equal(t, "File created", ack)
	})

	t.Run("no live endpoint left", func(t *testing.T) {
		for _, n := range cluster.Nodes {
			require.NoError(t, cluster.Service.Registry().SetAlive(n.ID, false))
		}
		_, err := alice.Read("critical.txt")
		assert.EqualValues(t, protocol.CodeStorageUnavailable, protocol.CodeOf(err))
	})
}

// TestNoStorageNodes covers the cold cluster: the coordinator answers, but
// placement fails until a node registers.
func TestNoStorageNodes(t *testing.T) {
	cluster := StartCluster(t, 0)
	alice := cluster.Client("alice")

	_, err := alice.Create("early.txt")
	assert.EqualValues(t, protocol.CodeStorageUnavailable, protocol.CodeOf(err))

	// Listing operations need no storage.
	roster, err := alice.List()
	require.NoError(t, err)
	assert.Contains(t, roster, "alice")
}

// findPrimary locates the node holding the single placed file.
func findPrimary(t *testing.T, cluster *Cluster) *NodeHandle {
	t.Helper()
	nodes := cluster.Service.Registry().List()
	for _, n := range nodes {
		if n.FileCount > 0 {
			for _, handle := range cluster.Nodes {
				if handle.ID == n.ID {
					return handle
				}
			}
		}
	}
	t.Fatal("no node reports a placed file; id=" + strconv.Itoa(len(nodes)))
	return nil
}
