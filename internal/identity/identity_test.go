package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose_RoundTrip(t *testing.T) {
	cases := []struct {
		name             string
		scope, kind, key string
	}{
		{"plain", "frontend", "Class", "src/app.ts#App"},
		{"key with delimiter", "backend", "File", "C:/work/main.go"},
		{"key made of delimiters", "a", "b", ":::"},
		{"empty key", "shared", "Codebase", ""},
		{"scope with delimiter", "org:repo", "Package", "github.com/org/repo/pkg"},
		{"kind with delimiter", "x", "Weird:Kind", "k"},
		{"escape char in scope", "50%:off", "Function", "f"},
		{"empty everything", "", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := Compose(tc.scope, tc.kind, tc.key)
			got, err := Decompose(id)
			require.NoError(t, err)
			assert.Equal(t, Sanitize(tc.scope), got.Scope)
			assert.Equal(t, Sanitize(tc.kind), got.Kind)
			assert.Equal(t, tc.key, got.Key)
			assert.Equal(t, id, got.String())
			assert.Equal(t, tc.scope, Unsanitize(got.Scope))
			assert.Equal(t, tc.kind, Unsanitize(got.Kind))
		})
	}
}

func TestCompose_Deterministic(t *testing.T) {
	first := Compose("repo", "Function", "pkg.Handler")
	second := Compose("repo", "Function", "pkg.Handler")
	assert.Equal(t, first, second, "re-importing an unchanged entity must yield the same id")
}

func TestCompose_NoSanitizationCollisions(t *testing.T) {
	triples := [][3]string{
		{"a:b", "K", "x"},
		{"a", "b:K", "x"},
		{"a", "b", "K:x"},
		{"a%3Ab", "K", "x"},
		{"a_b", "K", "x"},
	}
	seen := make(map[string][3]string)
	for _, tr := range triples {
		id := Compose(tr[0], tr[1], tr[2])
		prev, dup := seen[id]
		assert.False(t, dup, "%v collides with %v as %q", tr, prev, id)
		seen[id] = tr
	}
}

func TestDecompose_Malformed(t *testing.T) {
	for _, id := range []string{"", "no-delimiter", "path/with/slashes"} {
		_, err := Decompose(id)
		assert.ErrorIs(t, err, ErrMalformed, id)
	}

	got, err := Decompose("scope:kind")
	require.NoError(t, err)
	assert.Equal(t, ID{Scope: "scope", Kind: "kind"}, got)
}

func TestOwnedBy(t *testing.T) {
	id := Compose("org:repo", "File", "main.go")
	assert.True(t, OwnedBy(id, "org:repo"))
	assert.False(t, OwnedBy(id, "org"))
	assert.False(t, OwnedBy("garbage", "garbage"))
}

func TestExtractors(t *testing.T) {
	id := Compose("svc", "Method", "pkg.Server.Start")

	scope, err := Scope(id)
	require.NoError(t, err)
	assert.Equal(t, "svc", scope)

	kind, err := Kind(id)
	require.NoError(t, err)
	assert.Equal(t, "Method", kind)

	key, err := Key(id)
	require.NoError(t, err)
	assert.Equal(t, "pkg.Server.Start", key)

	cb, err := Codebase(Compose("a:b", "File", "x"))
	require.NoError(t, err)
	assert.Equal(t, "a:b", cb)

	_, err = Key("broken")
	assert.ErrorIs(t, err, ErrMalformed)
}
