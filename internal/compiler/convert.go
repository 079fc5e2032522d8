package compiler

import (
	"fmt"
	"math/big"

	"github.com/vk/livespan/internal/fragment"
	"github.com/zclconf/go-cty/cty"
	"go.starlark.net/starlark"
)

// starlarkComponent carries a component through Starlark code unchanged.
type starlarkComponent struct {
	c fragment.Component
}

func (s starlarkComponent) String() string        { return fmt.Sprintf("<component %s>", s.c.Name()) }
func (s starlarkComponent) Type() string          { return "component" }
func (s starlarkComponent) Freeze()               {}
func (s starlarkComponent) Truth() starlark.Bool  { return starlark.True }
func (s starlarkComponent) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: component") }

// toStarlark converts a cty value into a Starlark value. Objects and maps
// become dicts, lists, tuples and sets become lists.
func toStarlark(v cty.Value) (starlark.Value, error) {
	if v.IsNull() {
		return starlark.None, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	ty := v.Type()
	switch {
	case ty.Equals(fragment.ComponentType):
		c, _ := fragment.AsComponent(v)
		return starlarkComponent{c: c}, nil
	case ty == cty.String:
		return starlark.String(v.AsString()), nil
	case ty == cty.Bool:
		return starlark.Bool(v.True()), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int(nil)
			return starlark.MakeBigInt(i), nil
		}
		f, _ := bf.Float64()
		return starlark.Float(f), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		elems := make([]starlark.Value, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			sv, err := toStarlark(ev)
			if err != nil {
				return nil, err
			}
			elems = append(elems, sv)
		}
		return starlark.NewList(elems), nil
	case ty.IsMapType() || ty.IsObjectType():
		d := starlark.NewDict(v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			sv, err := toStarlark(ev)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k.AsString(), err)
			}
			if err := d.SetKey(starlark.String(k.AsString()), sv); err != nil {
				return nil, err
			}
		}
		return d, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}

// fromStarlark converts a Starlark value into a cty value.
func fromStarlark(v starlark.Value) (cty.Value, error) {
	switch x := v.(type) {
	case starlark.NoneType:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case starlark.Bool:
		return cty.BoolVal(bool(x)), nil
	case starlark.Int:
		return cty.NumberVal(new(big.Float).SetInt(x.BigInt())), nil
	case starlark.Float:
		return cty.NumberFloatVal(float64(x)), nil
	case starlark.String:
		return cty.StringVal(string(x)), nil
	case starlarkComponent:
		return fragment.ComponentVal(x.c), nil
	case *starlark.List:
		elems := make([]starlark.Value, x.Len())
		for i := range elems {
			elems[i] = x.Index(i)
		}
		return tupleFromStarlark(elems)
	case starlark.Tuple:
		return tupleFromStarlark(x)
	case *starlark.Dict:
		attrs := make(map[string]cty.Value, x.Len())
		for _, item := range x.Items() {
			k, ok := item[0].(starlark.String)
			if !ok {
				return cty.NilVal, fmt.Errorf("dict key %s is not a string", item[0].String())
			}
			cv, err := fromStarlark(item[1])
			if err != nil {
				return cty.NilVal, fmt.Errorf("key %q: %w", string(k), err)
			}
			attrs[string(k)] = cv
		}
		return cty.ObjectVal(attrs), nil
	}
	return cty.NilVal, fmt.Errorf("unsupported starlark type %s", v.Type())
}

func tupleFromStarlark(elems []starlark.Value) (cty.Value, error) {
	if len(elems) == 0 {
		return cty.EmptyTupleVal, nil
	}
	out := make([]cty.Value, len(elems))
	for i, e := range elems {
		cv, err := fromStarlark(e)
		if err != nil {
			return cty.NilVal, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = cv
	}
	return cty.TupleVal(out), nil
}
