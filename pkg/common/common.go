package common

// CommonResponse is a lightweight response wrapper used by HTTP handlers.
type CommonResponse struct {
	Code  int         `json:"code"`
	Msg   string      `json:"msg,omitempty"`
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// ReturnOK creates a HTTP 200 response.
func (CommonResponse) ReturnOK() CommonResponse {
	return CommonResponse{Code: 200}
}

// OK wraps data in a 200 response.
func OK(data interface{}) CommonResponse {
	return CommonResponse{Code: 200, Data: data}
}

// Fail builds an error response carrying code.
func Fail(code int, msg string, err error) CommonResponse {
	resp := CommonResponse{Code: code, Msg: msg}
	if err != nil {
		resp.Error = err.Error()
		if resp.Msg == "" {
			resp.Msg = err.Error()
		}
	}
	return resp
}
