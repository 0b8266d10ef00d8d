package js

import (
	"context"

	"github.com/dop251/goja"

	"github.com/roryl/zsx/storage"
)

// BindStorage installs window.localStorage and window.sessionStorage.
// localStorage is backed by area; sessionStorage lives in memory for the
// lifetime of the runtime.
func BindStorage(r *Runtime, area *storage.Area) {
	session := storage.NewArea(storage.NewMemory(), area.Origin())
	r.Do(func(vm *goja.Runtime) {
		local := newStorageObject(vm, area)
		sess := newStorageObject(vm, session)
		vm.Set("localStorage", local)
		vm.Set("sessionStorage", sess)
	})
}

// newStorageObject builds a Storage object. Store failures surface as
// JavaScript exceptions, the way a quota error would.
func newStorageObject(vm *goja.Runtime, area *storage.Area) *goja.Object {
	ctx := context.Background()
	obj := vm.NewObject()

	throw := func(err error) {
		panic(vm.NewGoError(err))
	}
	keys := func() []string {
		k, err := area.Keys(ctx)
		if err != nil {
			throw(err)
		}
		return k
	}

	obj.DefineAccessorProperty("length", vm.ToValue(func(goja.FunctionCall) goja.Value {
		return vm.ToValue(len(keys()))
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	obj.Set("key", func(call goja.FunctionCall) goja.Value {
		i := int(call.Argument(0).ToInteger())
		k := keys()
		if i < 0 || i >= len(k) {
			return goja.Null()
		}
		return vm.ToValue(k[i])
	})

	obj.Set("getItem", func(call goja.FunctionCall) goja.Value {
		value, ok, err := area.GetItem(ctx, call.Argument(0).String())
		if err != nil {
			throw(err)
		}
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(value)
	})

	obj.Set("setItem", func(call goja.FunctionCall) goja.Value {
		if err := area.SetItem(ctx, call.Argument(0).String(), call.Argument(1).String()); err != nil {
			throw(err)
		}
		return goja.Undefined()
	})

	obj.Set("removeItem", func(call goja.FunctionCall) goja.Value {
		if err := area.RemoveItem(ctx, call.Argument(0).String()); err != nil {
			throw(err)
		}
		return goja.Undefined()
	})

	obj.Set("clear", func(goja.FunctionCall) goja.Value {
		if err := area.Clear(ctx); err != nil {
			throw(err)
		}
		return goja.Undefined()
	})

	return obj
}
