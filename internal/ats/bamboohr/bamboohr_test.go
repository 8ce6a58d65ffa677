package bamboohr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitJobURL(t *testing.T) {
	base, id, ok := SplitJobURL("https://acme.bamboohr.com/careers/42")
	require.True(t, ok)
	assert.Equal(t, "https://acme.bamboohr.com", base)
	assert.Equal(t, "42", id)

	_, _, ok = SplitJobURL("https://acme.bamboohr.com/careers/42/apply")
	assert.True(t, ok)

	for _, bad := range []string{
		"https://acme.bamboohr.com/careers/",
		"https://acme.bamboohr.com/about",
		"https://acme.example.com/careers/42",
		"/careers/42",
	} {
		_, _, ok := SplitJobURL(bad)
		assert.False(t, ok, bad)
	}
}

func TestMapFieldsOnSiteWithCompensation(t *testing.T) {
	o := &jobOpening{
		Name:                  "CNC Lathe Operator ",
		EmploymentStatusLabel: "Full-Time",
		LocationType:          "0",
		Description:           "<p>Sample description</p>",
		ShareURL:              "https://example.bamboohr.com/careers/1",
		Compensation:          json.RawMessage(`{"range": {"min": "50,000", "max": "80000"}}`),
	}
	o.Location.City = "Fairview"
	o.Location.State = "Pennsylvania"
	o.Location.AddressCountry = "United States"
	o.ATSLocation.Country = "United States"

	f := mapFields(o, "Example Corp")

	assert.Equal(t, "CNC Lathe Operator", f.Title)
	assert.Equal(t, "Example Corp", f.CompanyName)
	assert.Equal(t, "Fairview, Pennsylvania, United States", f.Location)
	require.NotNil(t, f.RemoteOK)
	assert.False(t, *f.RemoteOK)
	assert.Equal(t, "Full-Time", f.JobType)
	assert.Equal(t, "<p>Sample description</p>", f.DescriptionHTML)
	require.NotNil(t, f.MinSalary)
	assert.Equal(t, 50000.0, *f.MinSalary)
	require.NotNil(t, f.MaxSalary)
	assert.Equal(t, 80000.0, *f.MaxSalary)
	assert.Equal(t, "https://example.bamboohr.com/careers/1", f.ApplicationLink)
}

func TestMapFieldsRemoteLocationFallback(t *testing.T) {
	o := &jobOpening{
		Name:         "Remote Engineer",
		LocationType: "1",
		Compensation: json.RawMessage(`{}`),
	}
	o.ATSLocation.City = "Anywhere"
	o.ATSLocation.State = "Remote"

	f := mapFields(o, "Example Corp")

	assert.Equal(t, "Anywhere, Remote", f.Location)
	require.NotNil(t, f.RemoteOK)
	assert.True(t, *f.RemoteOK)
	assert.Nil(t, f.MinSalary)
	assert.Nil(t, f.MaxSalary)
}

func TestMapFieldsCountryOnly(t *testing.T) {
	o := &jobOpening{Name: "Ops", LocationType: "2"}
	o.ATSLocation.Country = "Germany"

	f := mapFields(o, "Example Corp")
	assert.Equal(t, "Germany", f.Location)
	assert.Nil(t, f.RemoteOK)
}

func TestParseFetchesAndMemoizes(t *testing.T) {
	var detailCalls, infoCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/careers/42/detail":
			detailCalls.Add(1)
			fmt.Fprint(w, `{"result": {"jobOpening": {
				"jobOpeningName": "Machinist",
				"employmentStatusLabel": "Full-Time",
				"locationType": "0",
				"description": "<p>desc</p>",
				"jobOpeningShareUrl": "https://acme.bamboohr.com/careers/42",
				"location": {"city": "Erie", "state": "PA"}
			}}}`)
		case "/careers/company-info":
			infoCalls.Add(1)
			fmt.Fprint(w, `{"result": {"name": "Acme"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := New(5 * time.Second)
	p.baseOverride = srv.URL

	for i := 0; i < 2; i++ {
		parsed, err := p.Parse(context.Background(), "https://acme.bamboohr.com/careers/42")
		require.NoError(t, err)
		assert.Equal(t, "Machinist", parsed.Fields.Title)
		assert.Equal(t, "Acme", parsed.Fields.CompanyName)
		assert.Equal(t, "https://acme.bamboohr.com/careers/42", parsed.Canonical)
	}

	assert.Equal(t, int32(1), detailCalls.Load())
	assert.Equal(t, int32(1), infoCalls.Load())
}

func TestParseMissingJobOpeningIsHardError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result": {}}`)
	}))
	defer srv.Close()

	p := New(5 * time.Second)
	p.baseOverride = srv.URL

	_, err := p.Parse(context.Background(), "https://acme.bamboohr.com/careers/42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jobOpening")
}
