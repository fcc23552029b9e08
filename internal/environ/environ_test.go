package environ

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tagOne Tag = "one"
	tagTwo Tag = "two"
)

func buildEnv(t *testing.T, b *Builder) *Environ {
	t.Helper()
	env, err := b.Build()
	require.NoError(t, err)
	return env
}

func TestBuilder_SimpleValues(t *testing.T) {
	b := NewBuilder()
	Bind(b, "hello")
	Bind(b, 10)
	env := buildEnv(t, b)

	assert.Equal(t, "hello", Get[string](env))
	assert.Equal(t, 10, Get[int](env))
	assert.False(t, Get[bool](env), "missing binding yields zero value")
}

func TestBuilder_TaggedValues(t *testing.T) {
	b := NewBuilder()
	BindTagged(b, tagOne, "hello")
	BindTagged(b, tagTwo, "world")
	Bind(b, "plain")
	env := buildEnv(t, b)

	assert.Equal(t, "hello", GetTagged[string](env, tagOne))
	assert.Equal(t, "world", GetTagged[string](env, tagTwo))
	assert.Equal(t, "plain", Get[string](env))
	assert.Equal(t, 0, GetTagged[int](env, tagOne))
}

func TestBuilder_Duplicates(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder)
	}{
		{"value then value", func(b *Builder) { Bind(b, 1); Bind(b, 2) }},
		{"tagged value twice", func(b *Builder) { BindTagged(b, tagOne, 1); BindTagged(b, tagOne, 2) }},
		{"value then derivation", func(b *Builder) {
			Bind(b, 1)
			DeriveTagged(b, "", func(*Environ) (int, bool) { return 2, true })
		}},
		{"derivation then value", func(b *Builder) {
			DeriveTagged(b, tagOne, func(*Environ) (int, bool) { return 2, true })
			BindTagged(b, tagOne, 1)
		}},
		{"derivation twice", func(b *Builder) {
			b.Derive(KeyOf[string](""), func(*Environ) any { return "a" })
			b.Derive(KeyOf[string](""), func(*Environ) any { return "b" })
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			tt.build(b)
			env, err := b.Build()
			require.Error(t, err)
			assert.Nil(t, env)
			assert.True(t, IsDuplicate(err))
			assert.False(t, IsUnresolved(err))
		})
	}
}

func TestBuilder_SameTypeDifferentTagsIsNotDuplicate(t *testing.T) {
	b := NewBuilder()
	Bind(b, 1)
	BindTagged(b, tagOne, 2)
	BindTagged(b, tagTwo, 3)
	env := buildEnv(t, b)

	assert.Equal(t, 1, Get[int](env))
	assert.Equal(t, 2, GetTagged[int](env, tagOne))
	assert.Equal(t, 3, GetTagged[int](env, tagTwo))
}

func TestBuilder_BuildIsolatesLaterRegistrations(t *testing.T) {
	b := NewBuilder()
	Bind(b, 1)
	env := buildEnv(t, b)

	Bind(b, "late")
	assert.Equal(t, "", Get[string](env))
}

func TestExtend_DoesNotMutateReceiver(t *testing.T) {
	b := NewBuilder()
	Bind(b, "base")
	root := buildEnv(t, b)

	child := Extend(root, "child")

	assert.Equal(t, "base", Get[string](root))
	assert.Equal(t, "child", Get[string](child))
	assert.Same(t, root, child.Parent())
	assert.True(t, root.IsRoot())
	assert.False(t, child.IsRoot())
}

func TestExtend_ShadowingAndRestore(t *testing.T) {
	root := buildEnv(t, NewBuilder())

	envs := []*Environ{root}
	cur := root
	for i := 1; i <= 5; i++ {
		cur = Extend(cur, i)
		envs = append(envs, cur)
		assert.Equal(t, i, Get[int](cur), "latest extension wins")
	}

	// Walking back restores each previous value.
	for i := 5; i >= 1; i-- {
		assert.Equal(t, i, Get[int](cur))
		cur = cur.Parent()
	}
	assert.Equal(t, 0, Get[int](cur))
	assert.Same(t, root, cur)
	assert.Equal(t, 5, envs[5].Depth())
	assert.Same(t, root, envs[5].Root())
}

func TestExtend_TagIsolation(t *testing.T) {
	root := buildEnv(t, NewBuilder())

	env := ExtendTagged(Extend(root, "plain"), tagOne, "tagged")

	assert.Equal(t, "plain", Get[string](env))
	assert.Equal(t, "tagged", GetTagged[string](env, tagOne))
	assert.Equal(t, "", GetTagged[string](env, tagTwo))
}

func TestLookup_ExactTypeOnly(t *testing.T) {
	buf := &bytes.Buffer{}
	env := Extend(buildEnv(t, NewBuilder()), buf)

	_, ok := Lookup[*bytes.Buffer](env, "")
	assert.True(t, ok)

	_, ok = Lookup[io.Writer](env, "")
	assert.False(t, ok, "concrete binding is invisible under an interface it implements")

	var w io.Writer = buf
	env = Extend(env, w)
	got, ok := Lookup[io.Writer](env, "")
	require.True(t, ok)
	assert.Same(t, buf, got)
}

func TestRequire(t *testing.T) {
	env := Extend(buildEnv(t, NewBuilder()), 3)

	v, err := Require[int](env, "")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = Require[string](env, "")
	require.Error(t, err)
	assert.True(t, IsUnresolved(err))
	assert.Contains(t, err.Error(), "string")

	_, err = Require[int](env, tagOne)
	assert.True(t, IsUnresolved(err))
	assert.Contains(t, err.Error(), "int@one")
}

func TestRequire_DerivationTypeMismatch(t *testing.T) {
	b := NewBuilder()
	b.Derive(KeyOf[int](""), func(*Environ) any { return "not an int" })
	env := buildEnv(t, b)

	_, err := Require[int](env, "")
	var be *BindingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ErrCodeTypeMismatch, be.Code)
	assert.Equal(t, 0, Get[int](env))
}

func TestDerivation_SeesTopOfChain(t *testing.T) {
	b := NewBuilder()
	BindTagged(b, tagOne, "hello")
	DeriveTagged(b, "", func(top *Environ) (string, bool) {
		return fmt.Sprintf("%s-%s", GetTagged[string](top, tagOne), GetTagged[string](top, tagTwo)), true
	})
	root := buildEnv(t, b)

	assert.Equal(t, "hello-", Get[string](root))

	deep := Extend(ExtendTagged(root, tagTwo, "world"), 7)
	assert.Equal(t, "hello-world", Get[string](deep), "derivation reads bindings added below the root")
}

func TestDerivation_NotCached(t *testing.T) {
	calls := 0
	b := NewBuilder()
	DeriveTagged(b, "", func(*Environ) (int, bool) {
		calls++
		return calls, true
	})
	env := buildEnv(t, b)

	assert.Equal(t, 1, Get[int](env))
	assert.Equal(t, 2, Get[int](env))
	assert.Equal(t, 2, calls)
}

func TestDerivation_AbsentResult(t *testing.T) {
	b := NewBuilder()
	DeriveTagged(b, "", func(*Environ) (int, bool) { return 0, false })
	env := buildEnv(t, b)

	_, ok := Lookup[int](env, "")
	assert.False(t, ok)
	_, err := Require[int](env, "")
	assert.True(t, IsUnresolved(err))
}

func TestDerivation_DirectBindingShadows(t *testing.T) {
	b := NewBuilder()
	DeriveTagged(b, "", func(*Environ) (int, bool) { return 1, true })
	env := Extend(buildEnv(t, b), 2)

	assert.Equal(t, 2, Get[int](env))
	assert.Equal(t, 1, Get[int](env.Parent()))
}

func TestResolveAll_InOrder(t *testing.T) {
	b := NewBuilder()
	Bind(b, "hello")
	BindTagged(b, tagOne, 7)
	env := Extend(buildEnv(t, b), true)

	got, err := env.ResolveAll([]Param{
		ParamOf[bool]("flag", ""),
		ParamOf[int]("count", tagOne),
		ParamOf[string]("greeting", ""),
	})
	require.NoError(t, err)
	if diff := cmp.Diff([]any{true, 7, "hello"}, got); diff != "" {
		t.Errorf("ResolveAll mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveAll_StrictFailure(t *testing.T) {
	env := Extend(buildEnv(t, NewBuilder()), 1)

	_, err := env.ResolveAll([]Param{
		ParamOf[int]("n", ""),
		ParamOf[string]("foo", ""),
		ParamOf[bool]("bar", ""),
	})
	require.Error(t, err)
	assert.True(t, IsUnresolved(err))
	assert.Contains(t, err.Error(), `"foo"`, "first unresolved param is reported")
}

func TestResolveAll_SubtypeAndSupertypeAreNotResolved(t *testing.T) {
	buf := &bytes.Buffer{}
	var r io.Reader = strings.NewReader("x")
	env := Extend(Extend(buildEnv(t, NewBuilder()), buf), r)

	_, err := env.ResolveAll([]Param{ParamOf[io.Writer]("w", "")})
	assert.True(t, IsUnresolved(err), "concrete type bound, interface requested")

	_, err = env.ResolveAll([]Param{ParamOf[*strings.Reader]("sr", "")})
	assert.True(t, IsUnresolved(err), "interface bound, concrete type requested")

	got, err := env.ResolveAll([]Param{ParamOf[*bytes.Buffer]("b", ""), ParamOf[io.Reader]("r", "")})
	require.NoError(t, err)
	assert.Same(t, buf, got[0])
}

func TestResolveAll_OptionalParam(t *testing.T) {
	env := buildEnv(t, NewBuilder())

	got, err := env.ResolveAll([]Param{
		OptionalParamOf[int]("n", ""),
		OptionalParamOf[string]("s", tagOne),
		OptionalParamOf[io.Writer]("w", ""),
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 0, got[0])
	assert.Equal(t, "", got[1])
	assert.Nil(t, got[2])
}

func TestResolveAll_NilBindingIsUnresolved(t *testing.T) {
	var w io.Writer
	env := Extend(buildEnv(t, NewBuilder()), w)

	_, err := env.ResolveAll([]Param{ParamOf[io.Writer]("w", "")})
	assert.True(t, IsUnresolved(err))
}

func TestEnviron_ZeroValueIsEmptyRoot(t *testing.T) {
	var env Environ
	assert.True(t, env.IsRoot())
	assert.Equal(t, 0, Get[int](&env))
	assert.Equal(t, 4, Get[int](Extend(&env, 4)))
}

func TestEnviron_ConcurrentReads(t *testing.T) {
	b := NewBuilder()
	Bind(b, "shared")
	root := buildEnv(t, b)
	base := Extend(root, 0)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inst := Extend(base, i)
			assert.Equal(t, i, Get[int](inst))
			assert.Equal(t, "shared", Get[string](inst))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, Get[int](base))
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "int", KeyOf[int]("").String())
	assert.Equal(t, "string@one", KeyOf[string](tagOne).String())
	assert.Equal(t, "<nil>", Key{}.String())
}

func TestEnviron_WithSelf(t *testing.T) {
	root := buildEnv(t, NewBuilder())
	env := Extend(root, 7).WithSelf()

	self := Get[*Environ](env)
	assert.Same(t, env, self)
	assert.Equal(t, 7, Get[int](self))

	// A further extension still sees the older self binding.
	inner := Extend(env, "x")
	assert.Same(t, env, Get[*Environ](inner))
	assert.Same(t, inner.Parent(), env)
}

func TestExtend_NilEnvironIsEmptyRoot(t *testing.T) {
	var root *Environ
	env := Extend(root, 5)

	assert.Equal(t, 5, Get[int](env))
	require.NotNil(t, env.Parent())
	assert.True(t, env.Parent().IsRoot())
	assert.Equal(t, 1, env.Depth())

	tagged := ExtendTagged(root, "limit", 9)
	assert.Equal(t, 9, GetTagged[int](tagged, "limit"))

	self := root.WithSelf()
	assert.Same(t, self, Get[*Environ](self))
	assert.Equal(t, 0, Get[int](root), "lookups on a nil environ find nothing")
}
