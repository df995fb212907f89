package middlewares

const (
	CtxRequestID = "request_id"
	CtxDeviceID  = "device_id"
	ctxStoresKey = "dm.stores"
)
