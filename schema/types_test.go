package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationTypeString(t *testing.T) {
	assert.Equal(t, "belongs_to", BelongsTo.String())
	assert.Equal(t, "has_one", HasOne.String())
	assert.Equal(t, "has_many", HasMany.String())
}

func TestRelationTypeCollection(t *testing.T) {
	assert.False(t, BelongsTo.Collection())
	assert.False(t, HasOne.Collection())
	assert.True(t, HasMany.Collection())
}

func TestNewResourceDefaults(t *testing.T) {
	res := NewResource("BlogPost")
	assert.Equal(t, "blog_posts", res.TableName)
	assert.Equal(t, "id", res.PrimaryKey)
	assert.NotNil(t, res.Relationships)
}

func TestForeignKeyColumn(t *testing.T) {
	post := NewResource("Post")

	belongsTo := &Relationship{Type: BelongsTo, Target: "User"}
	assert.Equal(t, "user_id", belongsTo.ForeignKeyColumn(post))

	hasMany := &Relationship{Type: HasMany, Target: "Comment"}
	assert.Equal(t, "post_id", hasMany.ForeignKeyColumn(post))

	custom := &Relationship{Type: BelongsTo, Target: "User", ForeignKey: "author_id"}
	assert.Equal(t, "author_id", custom.ForeignKeyColumn(post))
}

func TestAddRelationship(t *testing.T) {
	res := NewResource("Post")
	require.NoError(t, res.AddRelationship("author", &Relationship{Type: BelongsTo, Target: "User"}))

	err := res.AddRelationship("author", &Relationship{Type: BelongsTo, Target: "User"})
	assert.ErrorIs(t, err, ErrDuplicateRelationship)

	err = res.AddRelationship("", nil)
	assert.ErrorIs(t, err, ErrInvalidRelationship)

	assert.True(t, res.HasRelationship("author"))
	assert.False(t, res.HasRelationship("comments"))
}
