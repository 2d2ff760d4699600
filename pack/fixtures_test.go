package pack

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relpack/relpack/schema"
	"github.com/relpack/relpack/source"
)

// The fixture graph used across the package tests:
// User has_many posts, has_one profile; Post belongs_to author, has_many comments.
func setupTestRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	user := schema.NewResource("User")
	require.NoError(t, user.AddRelationship("posts", &schema.Relationship{
		Type: schema.HasMany, Target: "Post",
	}))
	require.NoError(t, user.AddRelationship("profile", &schema.Relationship{
		Type: schema.HasOne, Target: "Profile", Nullable: true,
	}))

	post := schema.NewResource("Post")
	require.NoError(t, post.AddRelationship("author", &schema.Relationship{
		Type: schema.BelongsTo, Target: "User", ForeignKey: "author_id",
	}))
	require.NoError(t, post.AddRelationship("comments", &schema.Relationship{
		Type: schema.HasMany, Target: "Comment",
	}))

	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(user))
	require.NoError(t, reg.Register(post))
	require.NoError(t, reg.Register(schema.NewResource("Profile")))
	require.NoError(t, reg.Register(schema.NewResource("Comment")))
	require.NoError(t, reg.ValidateAll())
	return reg
}

func setupTestSource(t *testing.T, reg *schema.Registry) *source.Memory {
	t.Helper()

	mem := source.NewMemory(reg)
	require.NoError(t, mem.Insert("User",
		source.Record{"id": 1, "name": "Paul"},
		source.Record{"id": 2, "name": "Ringo"},
	))
	require.NoError(t, mem.Insert("Post",
		source.Record{"id": 10, "title": "A", "author_id": 1},
		source.Record{"id": 11, "title": "B", "author_id": 1},
		source.Record{"id": 12, "title": "C", "author_id": 2},
	))
	require.NoError(t, mem.Insert("Comment",
		source.Record{"id": 100, "body": "nice", "post_id": 10},
		source.Record{"id": 101, "body": "meh", "post_id": 11},
	))
	return mem
}

// mustResource pulls a resource out of the registry or fails the test.
func mustResource(t *testing.T, reg *schema.Registry, name string) *schema.Resource {
	t.Helper()
	res, ok := reg.Get(name)
	require.True(t, ok, "resource %s not registered", name)
	return res
}

// postSerializer builds the Post serializer used by most traversal tests.
func postSerializer(t *testing.T, reg *schema.Registry) *Definition {
	t.Helper()
	def := NewDefinition("PostSerializer")
	require.NoError(t, def.Model(mustResource(t, reg, "Post")))
	require.NoError(t, def.Attribute("id"))
	require.NoError(t, def.Attribute("title"))
	return def
}

func userSerializer(t *testing.T, reg *schema.Registry, posts *Definition) *Definition {
	t.Helper()
	def := NewDefinition("UserSerializer")
	require.NoError(t, def.Model(mustResource(t, reg, "User")))
	require.NoError(t, def.Attribute("id"))
	require.NoError(t, def.Attribute("name"))
	require.NoError(t, def.Association("posts", posts))
	return def
}
