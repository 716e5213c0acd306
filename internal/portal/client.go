// Package portal implements the client side of the school portal's SOAP-style
// web service: request envelope construction, the HTTP call, and the
// two-stage decoding of its double-encoded XML responses.
package portal

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	endpointPath = "/Service/PXPCommunication.asmx"

	actionGeneric  = "http://edupoint.com/webservices/ProcessWebServiceRequest"
	actionMultiWeb = "http://edupoint.com/webservices/ProcessWebServiceRequestMultiWeb"

	serviceHandle = "PXPWebServices"

	// MethodChildList lists the children enrolled under an account. It is the
	// one method carried by the multi-web request shape.
	MethodChildList = "ChildList"
	// MethodGradebook fetches one student's gradebook.
	MethodGradebook = "Gradebook"
)

// genericTemplate is the request body for every method except ChildList.
// Field order is part of the wire contract.
const genericTemplate = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
    <soap:Body>
        <ProcessWebServiceRequest xmlns="http://edupoint.com/webservices/">
            <userID>%s</userID>
            <password>%s</password>
            <skipLoginLog>%s</skipLoginLog>
            <parent>1</parent>
            <webServiceHandleName>%s</webServiceHandleName>
            <methodName>%s</methodName>
            <paramStr>%s</paramStr>
        </ProcessWebServiceRequest>
    </soap:Body>
</soap:Envelope>`

// multiWebTemplate is the ChildList request body. It differs from the generic
// shape by the action element name and an empty webDBName field.
const multiWebTemplate = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
    <soap:Body>
        <ProcessWebServiceRequestMultiWeb xmlns="http://edupoint.com/webservices/">
            <userID>%s</userID>
            <password>%s</password>
            <skipLoginLog>%s</skipLoginLog>
            <parent>1</parent>
            <webDBName></webDBName>
            <webServiceHandleName>%s</webServiceHandleName>
            <methodName>%s</methodName>
            <paramStr>%s</paramStr>
        </ProcessWebServiceRequestMultiWeb>
    </soap:Body>
</soap:Envelope>`

// BuildRequest assembles the SOAP action and envelope body for a portal
// method call. ChildList selects the multi-web shape; every other method uses
// the generic shape.
func BuildRequest(methodName, userID, password, paramStr, skipLoginLog string) (action, body string) {
	if methodName == MethodChildList {
		return actionMultiWeb, fmt.Sprintf(multiWebTemplate,
			userID, password, skipLoginLog, serviceHandle, methodName, paramStr)
	}
	return actionGeneric, fmt.Sprintf(genericTemplate,
		userID, password, skipLoginLog, serviceHandle, methodName, paramStr)
}

// Client calls the school portal's web service endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a portal client for the given base URL. If httpClient is
// nil, http.DefaultClient is used; calls rely on the transport's defaults and
// make a single attempt with no retry.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// envelope mirrors the outer SOAP response. Unmarshaling the result element's
// text content removes the first of the two entity-encoding levels.
type envelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Result string `xml:"ProcessWebServiceRequestResult"`
		} `xml:"ProcessWebServiceRequestResponse"`
	} `xml:"Body"`
}

// call posts a request for methodName and returns the inner document with the
// structural decode already applied, ready for the inner parse.
func (c *Client) call(ctx context.Context, methodName, userID, password, paramStr, skipLoginLog string) (string, error) {
	action, body := BuildRequest(methodName, userID, password, paramStr, skipLoginLog)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpointPath, strings.NewReader(body))
	if err != nil {
		return "", &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("SOAPAction", action)
	req.Header.Set("User-Agent", "ParentVUE/12.2.15 CFNetwork/1410.1 Darwin/22.6.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	var env envelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return "", &ProtocolError{Reason: "parse response envelope", Err: err}
	}
	if env.Body.Response.Result == "" {
		return "", &ProtocolError{Reason: "response envelope has no result element"}
	}

	return DecodeStructural(env.Body.Response.Result), nil
}

// FetchGrades retrieves the gradebook for one student, identified by the
// portal's external student identifier.
func (c *Client) FetchGrades(ctx context.Context, userID, password, childIntID string) ([]CourseRecord, error) {
	paramStr := fmt.Sprintf("<Parms><ChildIntID>%s</ChildIntID></Parms>", childIntID)
	decoded, err := c.call(ctx, MethodGradebook, userID, password, paramStr, "1")
	if err != nil {
		return nil, err
	}
	return ParseGradebook(decoded)
}

// FetchChildren retrieves the students enrolled under an account.
func (c *Client) FetchChildren(ctx context.Context, userID, password string) ([]Child, error) {
	decoded, err := c.call(ctx, MethodChildList, userID, password, "<Parms></Parms>", "0")
	if err != nil {
		return nil, err
	}
	return ParseChildList(decoded)
}
