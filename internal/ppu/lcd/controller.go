package lcd

// Controller models LCDC (0xFF40): the bits that gate rendering and
// select tile map/data addressing. It has no register-table dependency
// of its own; the PPU binds Write/Read into the shared hardware
// register table alongside its other ports.
type Controller struct {
	Enabled                  bool
	WindowTileMapAddress     uint16
	WindowEnabled            bool
	TileDataAddress          uint16
	BackgroundTileMapAddress uint16
	SpriteHeight             uint8
	SpriteEnabled            bool
	BackgroundEnabled        bool
}

func NewController() *Controller {
	return &Controller{
		WindowTileMapAddress:     0x9800,
		BackgroundTileMapAddress: 0x9800,
		TileDataAddress:          0x8800,
		SpriteHeight:             8,
		BackgroundEnabled:        true,
		SpriteEnabled:            true,
		WindowEnabled:            true,
		Enabled:                  true,
	}
}

func (c *Controller) Write(value uint8) {
	c.Enabled = value&0x80 != 0
	if value&0x40 != 0 {
		c.WindowTileMapAddress = 0x9C00
	} else {
		c.WindowTileMapAddress = 0x9800
	}
	c.WindowEnabled = value&0x20 != 0
	if value&0x10 != 0 {
		c.TileDataAddress = 0x8000
	} else {
		c.TileDataAddress = 0x8800
	}
	if value&0x08 != 0 {
		c.BackgroundTileMapAddress = 0x9C00
	} else {
		c.BackgroundTileMapAddress = 0x9800
	}
	if value&0x04 != 0 {
		c.SpriteHeight = 16
	} else {
		c.SpriteHeight = 8
	}
	c.SpriteEnabled = value&0x02 != 0
	c.BackgroundEnabled = value&0x01 != 0
}

func (c *Controller) Read() uint8 {
	var v uint8
	if c.Enabled {
		v |= 0x80
	}
	if c.WindowTileMapAddress == 0x9C00 {
		v |= 0x40
	}
	if c.WindowEnabled {
		v |= 0x20
	}
	if c.TileDataAddress == 0x8000 {
		v |= 0x10
	}
	if c.BackgroundTileMapAddress == 0x9C00 {
		v |= 0x08
	}
	if c.SpriteHeight == 16 {
		v |= 0x04
	}
	if c.SpriteEnabled {
		v |= 0x02
	}
	if c.BackgroundEnabled {
		v |= 0x01
	}
	return v
}

// UsingSignedTileData reports whether BG/window tile indices address
// 0x8800-0x97FF as a signed offset from 0x9000.
func (c *Controller) UsingSignedTileData() bool {
	return c.TileDataAddress == 0x8800
}
