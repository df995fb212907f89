package middlewares

import (
	"github.com/geocoder89/dmdash/internal/session"
	"github.com/geocoder89/dmdash/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	DeviceCookie       = "dm-device"
	deviceCookieMaxAge = 60 * 60 * 24 * 365
)

// Stores assigns each browser a stable device id (its local storage
// namespace) and opens the cookie jar and local storage for the request.
func Stores(provider storage.Provider, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		jar := storage.NewGinJar(c, secure)

		device, ok, _ := jar.Get(DeviceCookie)
		if _, err := uuid.Parse(device); !ok || err != nil {
			device = uuid.NewString()
			_ = jar.Set(storage.Cookie{
				Name:     DeviceCookie,
				Value:    device,
				Path:     "/",
				MaxAge:   deviceCookieMaxAge,
				HttpOnly: true,
			})
		}

		c.Set(CtxDeviceID, device)
		c.Set(ctxStoresKey, session.Stores{
			Cookies: jar,
			Local:   provider.Open(jar, device),
		})

		c.Next()
	}
}

// StoresFrom returns the stores opened by Stores for this request.
func StoresFrom(c *gin.Context) (session.Stores, bool) {
	v, ok := c.Get(ctxStoresKey)
	if !ok {
		return session.Stores{}, false
	}
	st, ok := v.(session.Stores)
	return st, ok
}
