package pack

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relpack/relpack/eager"
	"github.com/relpack/relpack/source"
)

func TestPackNilInput(t *testing.T) {
	reg := setupTestRegistry(t)
	mem := setupTestSource(t, reg)
	inst, err := New(postSerializer(t, reg), nil, nil)
	require.NoError(t, err)

	out, err := NewPacker(mem).Pack(context.Background(), inst, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestPackUnsupportedInput(t *testing.T) {
	reg := setupTestRegistry(t)
	mem := setupTestSource(t, reg)
	inst, err := New(postSerializer(t, reg), nil, nil)
	require.NoError(t, err)

	_, err = NewPacker(mem).Pack(context.Background(), inst, 42)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPackEndToEnd(t *testing.T) {
	reg := setupTestRegistry(t)
	mem := setupTestSource(t, reg)
	posts := postSerializer(t, reg)
	users := userSerializer(t, reg, posts)

	inst, err := New(users, nil, nil)
	require.NoError(t, err)

	user := source.Record{"id": 1, "name": "Paul"}
	out, err := NewPacker(mem).Pack(context.Background(), inst, []source.Record{user})
	require.NoError(t, err)

	want := []map[string]any{{
		"id":   1,
		"name": "Paul",
		"posts": []map[string]any{
			{"id": 10, "title": "A"},
			{"id": 11, "title": "B"},
		},
	}}
	assert.Equal(t, want, out)
}

func TestPackQueryInput(t *testing.T) {
	reg := setupTestRegistry(t)
	mem := setupTestSource(t, reg)
	posts := postSerializer(t, reg)
	users := userSerializer(t, reg, posts)

	inst, err := New(users, nil, nil)
	require.NoError(t, err)

	out, err := NewPacker(mem).Pack(context.Background(), inst, mem.Query("User"))
	require.NoError(t, err)

	packed, ok := out.([]map[string]any)
	require.True(t, ok)
	require.Len(t, packed, 2)
	assert.Equal(t, "Paul", packed[0]["name"])
	assert.Equal(t, "Ringo", packed[1]["name"])
	assert.Len(t, packed[1]["posts"], 1)
}

func TestPackSingleRecord(t *testing.T) {
	reg := setupTestRegistry(t)
	mem := setupTestSource(t, reg)
	posts := postSerializer(t, reg)
	users := userSerializer(t, reg, posts)

	inst, err := New(users, nil, nil)
	require.NoError(t, err)

	out, err := NewPacker(mem).Pack(context.Background(), inst, source.Record{"id": 2, "name": "Ringo"})
	require.NoError(t, err)

	packed, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ringo", packed["name"])
	assert.Equal(t, []map[string]any{{"id": 12, "title": "C"}}, packed["posts"])
}

func TestPackDeterminism(t *testing.T) {
	reg := setupTestRegistry(t)
	mem := setupTestSource(t, reg)
	posts := postSerializer(t, reg)
	users := userSerializer(t, reg, posts)

	inst, err := New(users, nil, nil)
	require.NoError(t, err)
	packer := NewPacker(mem)

	user := source.Record{"id": 1, "name": "Paul"}
	first, err := packer.Pack(context.Background(), inst, user)
	require.NoError(t, err)
	second, err := packer.Pack(context.Background(), inst, user)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFieldOrderLastWriteWins(t *testing.T) {
	reg := setupTestRegistry(t)
	mem := setupTestSource(t, reg)

	def := NewDefinition("PostSerializer")
	require.NoError(t, def.Model(mustResource(t, reg, "Post")))
	require.NoError(t, def.Computed("x", func(*Instance, source.Record) any { return 1 }))
	require.NoError(t, def.Mutator(func(_ *Instance, _ source.Record, out map[string]any) {
		out["x"] = 2
	}))

	inst, err := New(def, nil, nil)
	require.NoError(t, err)

	out, err := NewPacker(mem).Pack(context.Background(), inst, source.Record{"id": 10})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 2}, out)
}

func TestTraitOptInIsolation(t *testing.T) {
	reg := setupTestRegistry(t)
	mem := setupTestSource(t, reg)
	def := postSerializer(t, reg)
	require.NoError(t, def.Trait("with_flag", func(b *Builder) error {
		return b.Computed("t", func(*Instance, source.Record) any { return true })
	}))

	plain, err := New(def, nil, nil)
	require.NoError(t, err)
	traited, err := New(def, []string{"with_flag"}, nil)
	require.NoError(t, err)
	packer := NewPacker(mem)

	rec := source.Record{"id": 10, "title": "A"}
	plainOut, err := packer.Pack(context.Background(), plain, rec)
	require.NoError(t, err)
	traitedOut, err := packer.Pack(context.Background(), traited, rec)
	require.NoError(t, err)

	assert.NotContains(t, plainOut.(map[string]any), "t")
	assert.Contains(t, traitedOut.(map[string]any), "t")

	// Packing through the traited instance leaves the plain one untouched.
	again, err := packer.Pack(context.Background(), plain, rec)
	require.NoError(t, err)
	assert.NotContains(t, again.(map[string]any), "t")
}

func TestAbsentToOnePacksExplicitNil(t *testing.T) {
	reg := setupTestRegistry(t)
	mem := setupTestSource(t, reg)

	profiles := NewDefinition("ProfileSerializer")
	require.NoError(t, profiles.Model(mustResource(t, reg, "Profile")))
	require.NoError(t, profiles.Attribute("id"))

	def := NewDefinition("UserSerializer")
	require.NoError(t, def.Model(mustResource(t, reg, "User")))
	require.NoError(t, def.Association("profile", profiles))

	inst, err := New(def, nil, nil)
	require.NoError(t, err)

	out, err := NewPacker(mem).Pack(context.Background(), inst, source.Record{"id": 1})
	require.NoError(t, err)

	packed := out.(map[string]any)
	v, present := packed["profile"]
	require.True(t, present, "absent to-one packs to an explicit nil, not a missing key")
	assert.Nil(t, v)
}

func TestAssociationPackingPreservesOrder(t *testing.T) {
	reg := setupTestRegistry(t)
	mem := setupTestSource(t, reg)
	posts := postSerializer(t, reg)
	users := userSerializer(t, reg, posts)

	inst, err := New(users, nil, nil)
	require.NoError(t, err)

	out, err := NewPacker(mem).Pack(context.Background(), inst, source.Record{"id": 1})
	require.NoError(t, err)

	packed := out.(map[string]any)["posts"].([]map[string]any)
	require.Len(t, packed, 2)
	assert.Equal(t, 10, packed[0]["id"])
	assert.Equal(t, 11, packed[1]["id"])
}

// Three-level tree: User -> posts -> comments. The comment serializer's
// precompute hook must run exactly once per pack call, with the flattened,
// de-duplicated set of every comment reachable across all posts.
func TestPrecomputeRunsOncePerPackCall(t *testing.T) {
	reg := setupTestRegistry(t)
	mem := setupTestSource(t, reg)

	var calls int
	var batchSizes []int
	comments := NewDefinition("CommentSerializer")
	require.NoError(t, comments.Model(mustResource(t, reg, "Comment")))
	require.NoError(t, comments.Attribute("id"))
	require.NoError(t, comments.Precompute(func(inst *Instance, batch []source.Record) error {
		calls++
		batchSizes = append(batchSizes, len(batch))
		return nil
	}))

	posts := postSerializer(t, reg)
	require.NoError(t, posts.Association("comments", comments))
	users := userSerializer(t, reg, posts)

	inst, err := New(users, nil, nil)
	require.NoError(t, err)

	_, err = NewPacker(mem).Pack(context.Background(), inst, mem.Query("User"))
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, []int{2}, batchSizes, "hook sees the de-duplicated flattened comment set")
}

func TestPrecomputeFeedsFieldsThroughScratch(t *testing.T) {
	reg := setupTestRegistry(t)
	mem := setupTestSource(t, reg)

	def := postSerializer(t, reg)
	require.NoError(t, def.Precompute(func(inst *Instance, batch []source.Record) error {
		inst.Put("batch_size", len(batch))
		return nil
	}))
	require.NoError(t, def.Computed("batch_size", func(inst *Instance, _ source.Record) any {
		v, _ := inst.Get("batch_size")
		return v
	}))

	inst, err := New(def, nil, nil)
	require.NoError(t, err)

	out, err := NewPacker(mem).Pack(context.Background(), inst, mem.Query("Post"))
	require.NoError(t, err)

	packed := out.([]map[string]any)
	require.Len(t, packed, 3)
	assert.Equal(t, 3, packed[0]["batch_size"])
}

func TestPrecomputeErrorAbortsPack(t *testing.T) {
	reg := setupTestRegistry(t)
	mem := setupTestSource(t, reg)

	def := postSerializer(t, reg)
	require.NoError(t, def.Precompute(func(*Instance, []source.Record) error {
		return assert.AnError
	}))

	inst, err := New(def, nil, nil)
	require.NoError(t, err)

	_, err = NewPacker(mem).Pack(context.Background(), inst, source.Record{"id": 10})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestPackRespectsEagerFilter(t *testing.T) {
	reg := setupTestRegistry(t)
	mem := setupTestSource(t, reg)
	posts := postSerializer(t, reg)
	users := userSerializer(t, reg, posts)

	keepA := func(records []map[string]any) []map[string]any {
		var out []map[string]any
		for _, rec := range records {
			if rec["title"] == "A" {
				out = append(out, rec)
			}
		}
		return out
	}
	require.NoError(t, users.Eager(map[string]any{
		"posts": eager.Filtered{Filter: keepA},
	}))

	inst, err := New(users, nil, nil)
	require.NoError(t, err)

	out, err := NewPacker(mem).Pack(context.Background(), inst, source.Record{"id": 1})
	require.NoError(t, err)

	packed := out.(map[string]any)["posts"].([]map[string]any)
	require.Len(t, packed, 1)
	assert.Equal(t, "A", packed[0]["title"])
}
