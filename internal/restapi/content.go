package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/temirov/tabmigrate/internal/catalog"
)

const (
	contentPathSegmentConstant         = "content"
	contentDispositionHeaderConstant   = "Content-Disposition"
	filenameParameterConstant          = "filename"
	fallbackFileNameTemplateConstant   = "%s.twbx"
	overwriteParameterConstant         = "overwrite"
	workbookTypeParameterConstant      = "workbookType"
	requestPayloadPartNameConstant     = "request_payload"
	workbookPartNameConstant           = "tableau_workbook"
	multipartMixedTemplateConstant     = "multipart/mixed; boundary=%s"
	octetStreamMediaTypeConstant       = "application/octet-stream"
	payloadDispositionTemplateConstant = `form-data; name="%s"`
	fileDispositionTemplateConstant    = `form-data; name="%s"; filename="%s"`
	packagedWorkbookExtensionConstant  = "twbx"
	stagedFilePermissionsConstant      = 0o600
	downloadWriteErrorTemplateConstant = "write %s: %w"
	publishReadErrorTemplateConstant   = "read %s: %w"
	publishEncodeErrorTemplateConstant = "encode multipart body: %w"
	workbookExtensionConstant          = "twb"
)

type publishRequest struct {
	Workbook struct {
		Name    string                  `json:"name"`
		Project projectReferencePayload `json:"project"`
	} `json:"workbook"`
}

// Download writes the workbook content into directory and returns the file path.
func (client *Client) Download(executionContext context.Context, session Session, workbookID string, directory string) (string, error) {
	if len(session.Token) == 0 {
		return "", ErrSessionRequired
	}
	path := client.sitePath(session, string(catalog.KindWorkbook), workbookID, contentPathSegmentConstant)
	request, requestError := client.newRequest(executionContext, session, http.MethodGet, path, nil, nil)
	if requestError != nil {
		return "", OperationError{Operation: OperationDownload, Cause: requestError}
	}
	request.Header.Set(acceptHeaderConstant, octetStreamMediaTypeConstant)

	response, executeError := client.execute(request, OperationDownload, resourceReference{kind: catalog.KindWorkbook, identifier: workbookID})
	if executeError != nil {
		return "", executeError
	}
	defer response.Body.Close()

	filePath := filepath.Join(directory, downloadFileName(response.Header.Get(contentDispositionHeaderConstant), workbookID))
	file, createError := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, stagedFilePermissionsConstant)
	if createError != nil {
		return "", OperationError{Operation: OperationDownload, Cause: fmt.Errorf(downloadWriteErrorTemplateConstant, filePath, createError)}
	}
	_, copyError := io.Copy(file, response.Body)
	closeError := file.Close()
	if copyError != nil {
		return "", OperationError{Operation: OperationDownload, Cause: fmt.Errorf(downloadWriteErrorTemplateConstant, filePath, copyError)}
	}
	if closeError != nil {
		return "", OperationError{Operation: OperationDownload, Cause: fmt.Errorf(downloadWriteErrorTemplateConstant, filePath, closeError)}
	}
	return filePath, nil
}

func downloadFileName(contentDisposition string, workbookID string) string {
	fallback := fmt.Sprintf(fallbackFileNameTemplateConstant, workbookID)
	if len(contentDisposition) == 0 {
		return fallback
	}
	_, parameters, parseError := mime.ParseMediaType(contentDisposition)
	if parseError != nil {
		return fallback
	}
	fileName := filepath.Base(filepath.Clean(parameters[filenameParameterConstant]))
	if len(fileName) == 0 || fileName == "." || fileName == string(filepath.Separator) || fileName == ".." {
		return fallback
	}
	return fileName
}

func workbookType(filePath string) string {
	extension := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	switch extension {
	case workbookExtensionConstant, packagedWorkbookExtensionConstant:
		return extension
	default:
		return packagedWorkbookExtensionConstant
	}
}

// Publish uploads the staged file as workbook.Name into workbook.ProjectID.
func (client *Client) Publish(executionContext context.Context, session Session, workbook catalog.Workbook, filePath string, overwrite bool) (catalog.Workbook, error) {
	if len(session.Token) == 0 {
		return catalog.Workbook{}, ErrSessionRequired
	}
	content, readError := os.ReadFile(filePath)
	if readError != nil {
		return catalog.Workbook{}, OperationError{Operation: OperationPublish, Cause: fmt.Errorf(publishReadErrorTemplateConstant, filePath, readError)}
	}

	body, contentType, encodeError := encodePublishBody(workbook, filepath.Base(filePath), content)
	if encodeError != nil {
		return catalog.Workbook{}, OperationError{Operation: OperationPublish, Cause: encodeError}
	}

	query := url.Values{}
	query.Set(overwriteParameterConstant, strconv.FormatBool(overwrite))
	query.Set(workbookTypeParameterConstant, workbookType(filePath))

	path := client.sitePath(session, string(catalog.KindWorkbook))
	request, requestError := client.newRequest(executionContext, session, http.MethodPost, path, query, body)
	if requestError != nil {
		return catalog.Workbook{}, OperationError{Operation: OperationPublish, Cause: requestError}
	}
	request.Header.Set(contentTypeHeaderConstant, contentType)

	response, executeError := client.execute(request, OperationPublish, resourceReference{kind: catalog.KindWorkbook, identifier: workbook.ProjectID, name: workbook.Name})
	if executeError != nil {
		return catalog.Workbook{}, executeError
	}
	defer response.Body.Close()

	var envelope workbookEnvelope
	if decodeError := json.NewDecoder(response.Body).Decode(&envelope); decodeError != nil {
		return catalog.Workbook{}, OperationError{Operation: OperationPublish, StatusCode: response.StatusCode, Cause: fmt.Errorf(responseDecodeErrorTemplateConstant, decodeError)}
	}
	published := workbookEntity(envelope.Workbook)
	return catalog.Workbook{ID: published.ID, Name: published.Name, ProjectID: published.ContainerID}, nil
}

func encodePublishBody(workbook catalog.Workbook, fileName string, content []byte) (*bytes.Buffer, string, error) {
	var payload publishRequest
	payload.Workbook.Name = workbook.Name
	payload.Workbook.Project.ID = workbook.ProjectID
	encodedPayload, marshalError := json.Marshal(payload)
	if marshalError != nil {
		return nil, "", fmt.Errorf(publishEncodeErrorTemplateConstant, marshalError)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	payloadHeader := textproto.MIMEHeader{}
	payloadHeader.Set(contentDispositionHeaderConstant, fmt.Sprintf(payloadDispositionTemplateConstant, requestPayloadPartNameConstant))
	payloadHeader.Set(contentTypeHeaderConstant, jsonMediaTypeConstant)
	payloadPart, payloadPartError := writer.CreatePart(payloadHeader)
	if payloadPartError != nil {
		return nil, "", fmt.Errorf(publishEncodeErrorTemplateConstant, payloadPartError)
	}
	if _, writeError := payloadPart.Write(encodedPayload); writeError != nil {
		return nil, "", fmt.Errorf(publishEncodeErrorTemplateConstant, writeError)
	}

	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set(contentDispositionHeaderConstant, fmt.Sprintf(fileDispositionTemplateConstant, workbookPartNameConstant, fileName))
	fileHeader.Set(contentTypeHeaderConstant, octetStreamMediaTypeConstant)
	filePart, filePartError := writer.CreatePart(fileHeader)
	if filePartError != nil {
		return nil, "", fmt.Errorf(publishEncodeErrorTemplateConstant, filePartError)
	}
	if _, writeError := filePart.Write(content); writeError != nil {
		return nil, "", fmt.Errorf(publishEncodeErrorTemplateConstant, writeError)
	}

	if closeError := writer.Close(); closeError != nil {
		return nil, "", fmt.Errorf(publishEncodeErrorTemplateConstant, closeError)
	}
	return body, fmt.Sprintf(multipartMixedTemplateConstant, writer.Boundary()), nil
}
