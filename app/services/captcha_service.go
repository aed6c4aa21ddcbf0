package services

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wenlng/go-captcha/v2/rotate"
)

// CaptchaService exposes methods to generate and verify captchas for the
// admin login page. This implementation uses the rotate captcha mode from
// go-captcha: the client receives a master image and a rotated thumb, and
// must submit the angle that re-aligns them.
type CaptchaService interface {
	// GenerateRotate creates a rotate captcha challenge and returns the assets and challenge ID
	GenerateRotate(ctx context.Context) (*RotateChallenge, error)
	// VerifyRotate verifies the provided user angle for a given challenge ID
	VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool
}

type RotateChallenge struct {
	ID                string
	MasterImageBase64 string
	ThumbImageBase64  string
}

type captchaServiceImpl struct {
	rotator   rotate.Captcha
	store     *challengeStore
	padding   int // tolerance for angle validation
	imgSizePx int // square size for rotate captcha images
}

// NewCaptchaServiceRotate constructs a CaptchaService using rotate mode.
// ttl bounds how long a challenge remains answerable, padding is the
// acceptable angle difference in degrees.
func NewCaptchaServiceRotate(ttl time.Duration, padding int, imgSizePx int) (CaptchaService, error) {
	if imgSizePx <= 0 {
		imgSizePx = 220
	}

	builder := rotate.NewBuilder(
		rotate.WithImageSquareSize(imgSizePx),
	)
	builder.SetResources(
		rotate.WithImages(generateRotateBackgrounds(3, imgSizePx)),
	)
	rotator := builder.Make()

	return &captchaServiceImpl{
		rotator:   rotator,
		store:     newChallengeStore(ttl),
		padding:   padding,
		imgSizePx: imgSizePx,
	}, nil
}

func (s *captchaServiceImpl) GenerateRotate(ctx context.Context) (*RotateChallenge, error) {
	captData, err := s.rotator.Generate()
	if err != nil {
		return nil, err
	}

	block := captData.GetData()
	if block == nil {
		return nil, err
	}

	masterB64, err := captData.GetMasterImage().ToBase64()
	if err != nil {
		return nil, err
	}
	thumbB64, err := captData.GetThumbImage().ToBase64()
	if err != nil {
		return nil, err
	}

	challengeID := uuid.New().String()
	s.store.Set(challengeID, challengeEntry{
		targetAngle: block.Angle,
		expiresAt:   time.Now().Add(s.store.ttl),
	})

	return &RotateChallenge{
		ID:                challengeID,
		MasterImageBase64: masterB64,
		ThumbImageBase64:  thumbB64,
	}, nil
}

func (s *captchaServiceImpl) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	entry, ok := s.store.Get(challengeID)
	if !ok {
		return false
	}

	ua := int(math.Round(userAngle))
	ok = rotate.Validate(ua, entry.targetAngle, s.padding)
	// one shot per challenge, regardless of outcome
	s.store.Delete(challengeID)

	return ok
}

// --- In-memory challenge store with TTL ---

type challengeEntry struct {
	targetAngle int
	expiresAt   time.Time
}

type challengeStore struct {
	mu  sync.RWMutex
	m   map[string]challengeEntry
	ttl time.Duration
}

func newChallengeStore(ttl time.Duration) *challengeStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	cs := &challengeStore{
		m:   make(map[string]challengeEntry),
		ttl: ttl,
	}
	go cs.cleanupLoop()
	return cs
}

func (s *challengeStore) Set(id string, e challengeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = e
}

func (s *challengeStore) Get(id string) (challengeEntry, bool) {
	s.mu.RLock()
	e, ok := s.m[id]
	s.mu.RUnlock()
	if !ok {
		return challengeEntry{}, false
	}
	if time.Now().After(e.expiresAt) {
		s.Delete(id)
		return challengeEntry{}, false
	}
	return e, true
}

func (s *challengeStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
}

func (s *challengeStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		s.mu.Lock()
		for k, v := range s.m {
			if now.After(v.expiresAt) {
				delete(s.m, k)
			}
		}
		s.mu.Unlock()
	}
}

// --- Utility: generate simple background images programmatically ---

func generateRotateBackgrounds(n int, size int) []image.Image {
	if n <= 0 {
		n = 1
	}
	imgs := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		imgs = append(imgs, newStripeNoiseImage(size, size))
	}
	return imgs
}

func newStripeNoiseImage(w, h int) image.Image {
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	phase := rand.Intn(64)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// diagonal stripes plus per-pixel noise
			band := uint8(160 + 60*math.Sin(float64(x+y+phase)/18.0))
			noise := uint8(rand.Intn(24))
			rgba.Set(x, y, color.RGBA{R: band - noise/2, G: band, B: 220 - band/3, A: 255})
		}
	}
	// overlay a few translucent boxes for extra texture
	drawRect(rgba, w/8, h/6, w/3, h/10, color.RGBA{R: 255, G: 255, B: 255, A: 36})
	drawRect(rgba, w/2, 2*h/3, w/3, h/12, color.RGBA{R: 0, G: 0, B: 0, A: 28})
	return rgba
}

func drawRect(dst *image.RGBA, x, y, w, h int, c color.RGBA) {
	rect := image.Rect(x, y, x+w, y+h)
	draw.Draw(dst, rect, &image.Uniform{C: c}, image.Point{}, draw.Over)
}
