package module

import (
	"strings"

	"github.com/joomcode/errorx"
	"github.com/tliron/commonlog"

	"secd/internal/diag"
	"secd/internal/object"
)

// Library is one loaded evaluator instance.
type Library interface {
	LoadFile(path string) (object.Object, error)
	Exports() []object.Binding
}

// Factory builds a fresh instance for the library at path. The instance
// should import through the same loader so cycles are detected.
type Factory func(path string) (Library, error)

type Loader struct {
	Resolver *Resolver
	Cache    map[string][]object.Binding // key: abs path

	factory Factory
	stack   []string
	index   map[string]int
	log     commonlog.Logger
}

func NewLoader(res *Resolver, factory Factory) *Loader {
	return &Loader{
		Resolver: res,
		Cache:    map[string][]object.Binding{},
		factory:  factory,
		index:    map[string]int{},
		log:      commonlog.GetLogger("secd.module"),
	}
}

// SetFactory replaces the instance builder, for callers that can only
// build it after the loader exists.
func (l *Loader) SetFactory(factory Factory) {
	l.factory = factory
}

// Load resolves spec relative to fromFile, evaluates the library once and
// returns its exported bindings in definition order.
func (l *Loader) Load(fromFile, spec string) ([]object.Binding, string, error) {
	path, err := l.Resolver.Resolve(fromFile, spec)
	if err != nil {
		return nil, "", diag.Import.Wrap(err, "import %q", spec)
	}
	if bindings, ok := l.Cache[path]; ok {
		return bindings, path, nil
	}
	if err := l.enter(path); err != nil {
		return nil, "", err
	}
	defer l.exit(path)

	if l.factory == nil {
		return nil, "", diag.Import.New("no library factory configured for %s", path)
	}
	lib, err := l.factory(path)
	if err != nil {
		return nil, "", diag.Import.Wrap(err, "cannot create instance for %s", path)
	}
	l.log.Infof("loading library %s", path)
	if _, err := lib.LoadFile(path); err != nil {
		return nil, "", errorx.Decorate(err, "in library %s", path)
	}
	bindings := lib.Exports()
	l.Cache[path] = bindings
	return bindings, path, nil
}

func (l *Loader) enter(path string) error {
	if idx, ok := l.index[path]; ok {
		chain := append([]string{}, l.stack[idx:]...)
		chain = append(chain, path)
		return diag.Import.New("import cycle: %s", strings.Join(chain, " -> "))
	}
	l.index[path] = len(l.stack)
	l.stack = append(l.stack, path)
	return nil
}

func (l *Loader) exit(path string) {
	delete(l.index, path)
	if len(l.stack) > 0 {
		l.stack = l.stack[:len(l.stack)-1]
	}
}

// Importer imports on behalf of code in From.
type Importer struct {
	Loader *Loader
	From   string
}

func (i *Importer) Import(spec string) ([]object.Binding, error) {
	bindings, _, err := i.Loader.Load(i.From, spec)
	return bindings, err
}
