package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSitemapService_Generate(t *testing.T) {
	env := newTestEnv(t)
	published := seedCourse(t, env.db, "Go", 0, true, 1)
	seedCourse(t, env.db, "Draft", 0, false, 1)

	svc := NewSitemapService(env.repo, env.db, env.logger, env.cache, "https://cursos.test")

	doc, err := svc.Generate(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(doc), `<?xml version="1.0" encoding="UTF-8"?>`)

	var set sitemapURLSet
	require.NoError(t, xml.Unmarshal(doc, &set))
	assert.Equal(t, sitemapNamespace, set.Xmlns)
	require.Len(t, set.URLs, len(sitemapStaticPages)+1)

	home := set.URLs[0]
	assert.Equal(t, "https://cursos.test", home.Loc)
	assert.Equal(t, "weekly", home.ChangeFreq)
	assert.Equal(t, "0.8", home.Priority)
	assert.Empty(t, home.LastMod)

	course := set.URLs[len(set.URLs)-1]
	assert.Equal(t, fmt.Sprintf("https://cursos.test/curso/%d", published.ID), course.Loc)
	assert.Equal(t, "monthly", course.ChangeFreq)
	assert.Equal(t, "0.6", course.Priority)
	assert.Equal(t, published.UpdatedAt.UTC().Format(sitemapDateLayout), course.LastMod)
}
