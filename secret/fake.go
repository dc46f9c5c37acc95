package secret

import (
	"sync"
)

// FakeBackend is an in-memory Backend that counts reads and can be told to
// fail or block.
type FakeBackend struct {
	mu     sync.Mutex
	values map[string]string
	reads  int
	Err    error
	// OnGet, if set, runs inside Get before the value is looked up.
	OnGet func(provider string)
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{values: make(map[string]string)}
}

func (f *FakeBackend) Get(service, provider string) (string, error) {
	f.mu.Lock()
	f.reads++
	hook := f.OnGet
	f.mu.Unlock()
	if hook != nil {
		hook(provider)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	v, ok := f.values[service+"/"+provider]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *FakeBackend) Set(service, provider, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.values[service+"/"+provider] = value
	return nil
}

func (f *FakeBackend) Delete(service, provider string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	key := service + "/" + provider
	if _, ok := f.values[key]; !ok {
		return ErrNotFound
	}
	delete(f.values, key)
	return nil
}

func (f *FakeBackend) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *FakeBackend) SetErr(err error) {
	f.mu.Lock()
	f.Err = err
	f.mu.Unlock()
}

// Put seeds the backing store without going through a Cache.
func (f *FakeBackend) Put(provider, value string) {
	f.mu.Lock()
	f.values[ServiceName+"/"+provider] = value
	f.mu.Unlock()
}
