package cache_test

import (
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/insurance-crm-web/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("u:7|leads|page=0", "value1")
	val, ok := c.Get("u:7|leads|page=0")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	if _, ok := c.Get("nonexistent"); ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_DeletePrefix(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Close()

	c.Set("u:1|leads|a", 1)
	c.Set("u:1|leads|b", 2)
	c.Set("u:1|products|", 3)
	c.Set("u:2|leads|a", 4)

	if n := c.DeletePrefix("u:1|"); n != 3 {
		t.Errorf("expected 3 removed, got %d", n)
	}
	if _, ok := c.Get("u:2|leads|a"); !ok {
		t.Error("other scope must survive")
	}
}

func TestCache_DeleteFunc(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Close()

	c.Set("u:1|leads|a", 1)
	c.Set("u:2|leads|b", 2)
	c.Set("u:2|products|", 3)

	n := c.DeleteFunc(func(k string) bool { return strings.Contains(k, "|leads|") })
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry left, got %d", c.Len())
	}
}
