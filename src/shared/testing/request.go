package testing

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/labstack/echo/v4"
	"github.com/onsi/gomega"
)

type RequestModifier func(r *http.Request)

type RequestModifiers []RequestModifier

func (r *RequestModifiers) Add(mods ...RequestModifier) {
	*r = append(*r, mods...)
}

func WithUserEmail(email string) RequestModifier {
	return func(request *http.Request) {
		request.Header.Set("X-User-Email", email)
	}
}

type RequestFactory struct {
	Method  string
	Target  string
	JSONObj interface{}
	Mods    RequestModifiers
}

func (r RequestFactory) MakeFake() *http.Request {
	var body io.Reader

	if r.JSONObj != nil {
		buf := &bytes.Buffer{}
		err := json.NewEncoder(buf).Encode(r.JSONObj)
		gomega.ExpectWithOffset(1, err).NotTo(gomega.HaveOccurred())

		body = buf
	}

	request := httptest.NewRequest(r.Method, r.Target, body)

	isJSONBody := body != nil
	if isJSONBody {
		request.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	for _, mod := range r.Mods {
		mod(request)
	}

	return request
}

// UploadRequestFactory builds a multipart file upload request.
type UploadRequestFactory struct {
	Target    string
	FieldName string
	FileName  string
	Contents  []byte
	Mods      RequestModifiers
}

func (u UploadRequestFactory) MakeFake() *http.Request {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	fileWriter, err := form.CreateFormFile(u.FieldName, u.FileName)
	gomega.ExpectWithOffset(1, err).NotTo(gomega.HaveOccurred())

	_, err = fileWriter.Write(u.Contents)
	gomega.ExpectWithOffset(1, err).NotTo(gomega.HaveOccurred())

	err = form.Close()
	gomega.ExpectWithOffset(1, err).NotTo(gomega.HaveOccurred())

	request := httptest.NewRequest("POST", u.Target, body)
	request.Header.Set(echo.HeaderContentType, form.FormDataContentType())

	for _, mod := range u.Mods {
		mod(request)
	}

	return request
}
