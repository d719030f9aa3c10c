package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// RegisterAPISteps wires the conversion API step definitions.
func (testCtx *TestContext) RegisterAPISteps(sc *godog.ScenarioContext) {
	sc.Step(`^the conversion service is running$`, testCtx.theConversionServiceIsRunning)
	sc.Step(`^I upload a PDF document named "([^"]*)"$`, testCtx.iUploadAPDFDocumentNamed)
	sc.Step(`^I upload a file named "([^"]*)"$`, testCtx.iUploadAFileNamed)
	sc.Step(`^I start processing the job$`, testCtx.iStartProcessingTheJob)
	sc.Step(`^the job eventually reaches status "([^"]*)"$`, testCtx.theJobEventuallyReachesStatus)
	sc.Step(`^I request the job result$`, testCtx.iRequestTheJobResult)
	sc.Step(`^I download the converted document$`, testCtx.iDownloadTheConvertedDocument)
	sc.Step(`^I delete the job$`, testCtx.iDeleteTheJob)
	sc.Step(`^I request the status of job "([^"]*)"$`, testCtx.iRequestTheStatusOfJob)
	sc.Step(`^I request the service health$`, testCtx.iRequestTheServiceHealth)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response should not contain "([^"]*)"$`, testCtx.theResponseShouldNotContain)
}

func (testCtx *TestContext) theConversionServiceIsRunning() error {
	return testCtx.StartService()
}

func (testCtx *TestContext) iUploadAPDFDocumentNamed(name string) error {
	return testCtx.uploadFile(name, []byte("%PDF-1.4 integration stub"))
}

func (testCtx *TestContext) iUploadAFileNamed(name string) error {
	return testCtx.uploadFile(name, []byte("arbitrary content"))
}

func (testCtx *TestContext) uploadFile(name string, content []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := fw.Write(content); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	if err := testCtx.doRequest(http.MethodPost, "/convert/upload", &buf, mw.FormDataContentType()); err != nil {
		return err
	}

	if testCtx.LastHTTPStatusCode == http.StatusOK {
		var up struct {
			JobID string `json:"job_id"`
		}
		if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &up); err != nil {
			return fmt.Errorf("parse upload response: %w", err)
		}
		testCtx.JobID = up.JobID
	}
	return nil
}

func (testCtx *TestContext) iStartProcessingTheJob() error {
	return testCtx.doRequest(http.MethodPost, "/convert/process/"+testCtx.JobID, nil, "")
}

func (testCtx *TestContext) theJobEventuallyReachesStatus(want string) error {
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		if err := testCtx.doRequest(http.MethodGet, "/convert/status/"+testCtx.JobID, nil, ""); err != nil {
			return err
		}

		var st struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &st); err != nil {
			return fmt.Errorf("parse status response: %w", err)
		}
		if st.Status == want {
			return nil
		}
		if st.Status == "failed" && want != "failed" {
			return fmt.Errorf("job failed while waiting for status %q: %s", want, testCtx.LastHTTPResponse)
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("job did not reach status %q in time", want)
}

func (testCtx *TestContext) iRequestTheJobResult() error {
	return testCtx.doRequest(http.MethodGet, "/convert/result/"+testCtx.JobID, nil, "")
}

func (testCtx *TestContext) iDownloadTheConvertedDocument() error {
	return testCtx.doRequest(http.MethodGet, "/convert/download/"+testCtx.JobID, nil, "")
}

func (testCtx *TestContext) iDeleteTheJob() error {
	return testCtx.doRequest(http.MethodDelete, "/convert/"+testCtx.JobID, nil, "")
}

func (testCtx *TestContext) iRequestTheStatusOfJob(id string) error {
	return testCtx.doRequest(http.MethodGet, "/convert/status/"+id, nil, "")
}

func (testCtx *TestContext) iRequestTheServiceHealth() error {
	return testCtx.doRequest(http.MethodGet, "/health", nil, "")
}

func (testCtx *TestContext) theResponseStatusShouldBe(want int) error {
	if testCtx.LastHTTPStatusCode != want {
		return fmt.Errorf("expected status %d, got %d (body: %s)",
			want, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(want string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, want) {
		return fmt.Errorf("response does not contain %q: %s", want, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldNotContain(unwanted string) error {
	if strings.Contains(testCtx.LastHTTPResponse, unwanted) {
		return fmt.Errorf("response unexpectedly contains %q: %s", unwanted, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) doRequest(method, path string, body io.Reader, contentType string) error {
	if testCtx.HTTPServer == nil {
		return fmt.Errorf("conversion service is not running")
	}

	req, err := http.NewRequest(method, testCtx.HTTPServer.URL+path, body) //nolint:noctx // godog steps have no request context
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(data)
	testCtx.LastHTTPHeaders = resp.Header
	return nil
}
