// Package cache keeps decoded tiles in memory for the render path.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"globe/tile"
	"globe/vt"
)

//DefaultSize tiles kept before the least recently used one is evicted
const DefaultSize = 4096

//Tile decoded tile content; created once per successful fetch and never
//mutated afterwards.
type Tile struct {
	ID     tile.ID
	Layers vt.Layers
}

//Cache synchronous tile store. Safe for concurrent use.
type Cache struct {
	tiles *lru.Cache[tile.ID, *Tile]
}

//New creates a cache holding at most size tiles.
func New(size int) (*Cache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}
	c, err := lru.New[tile.ID, *Tile](size)
	if err != nil {
		return nil, err
	}
	return &Cache{tiles: c}, nil
}

//Get looks up a tile and marks it recently used.
func (c *Cache) Get(id tile.ID) (*Tile, bool) {
	return c.tiles.Get(id)
}

//Contains reports presence without touching recency.
func (c *Cache) Contains(id tile.ID) bool {
	return c.tiles.Contains(id)
}

//Add inserts t; reports whether an older tile was evicted to make room.
func (c *Cache) Add(t *Tile) (evicted bool) {
	return c.tiles.Add(t.ID, t)
}

//Len number of cached tiles
func (c *Cache) Len() int {
	return c.tiles.Len()
}

//Purge drops every tile.
func (c *Cache) Purge() {
	c.tiles.Purge()
}
