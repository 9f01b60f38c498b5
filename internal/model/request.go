package model

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/materials-data-facility/connect/internal/errs"
	"github.com/materials-data-facility/connect/utils/base62"
	"github.com/materials-data-facility/connect/utils/sanitise"
)

var (
	ErrInvalidRequest  = errors.New("invalid submission")
	ErrMissingTitle    = errors.New("at least one title is required")
	ErrMissingCreator  = errors.New("at least one creator is required")
	ErrMissingSource   = errors.New("at least one data source is required")
	ErrEmptySourceName = errors.New("source name is empty after normalisation")
)

type Title struct {
	Title string `json:"title"`
}

type Creator struct {
	CreatorName string   `json:"creatorName"`
	Affiliation []string `json:"affiliation,omitempty"`
}

type Description struct {
	Description     string `json:"description"`
	DescriptionType string `json:"descriptionType,omitempty"`
}

type Subject struct {
	Subject string `json:"subject"`
}

// DataCite is the DataCite-shaped dataset description.
type DataCite struct {
	Titles          []Title       `json:"titles"`
	Creators        []Creator     `json:"creators"`
	Publisher       string        `json:"publisher,omitempty"`
	PublicationYear string        `json:"publicationYear,omitempty"`
	Descriptions    []Description `json:"descriptions,omitempty"`
	Subjects        []Subject     `json:"subjects,omitempty"`
}

type MDFBlock struct {
	SourceName    string   `json:"source_name,omitempty"`
	Organizations []string `json:"organizations,omitempty"`
}

// SubmissionRequest is what a researcher submits.
type SubmissionRequest struct {
	DC          DataCite       `json:"dc"`
	MDF         MDFBlock       `json:"mdf"`
	DataSources []string       `json:"data_sources"`
	Test        bool           `json:"test,omitempty"`
	Update      bool           `json:"update,omitempty"`
	Curation    bool           `json:"curation,omitempty"`
	ACL         []string       `json:"acl,omitempty"`
	Services    map[string]any `json:"services,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	ExternalURI string         `json:"external_uri,omitempty"`
}

// Title returns the primary title.
func (r *SubmissionRequest) Title() string {
	if len(r.DC.Titles) == 0 {
		return ""
	}

	return r.DC.Titles[0].Title
}

// Validate checks the request and returns every problem found.
func (r *SubmissionRequest) Validate() error {
	var problems []error

	if strings.TrimSpace(r.Title()) == "" {
		problems = append(problems, ErrMissingTitle)
	}

	if len(r.DC.Creators) == 0 {
		problems = append(problems, ErrMissingCreator)
	}

	if len(r.DataSources) == 0 {
		problems = append(problems, ErrMissingSource)
	} else if _, err := ParseGlobusLocations(r.DataSources); err != nil {
		problems = append(problems, err)
	}

	if len(problems) == 0 {
		return nil
	}

	return errs.Wrap(ErrInvalidRequest, errors.Join(problems...))
}

// Sanitise strips markup from every free text field.
func (r *SubmissionRequest) Sanitise() error {
	var err error

	for i := range r.DC.Titles {
		if r.DC.Titles[i].Title, err = sanitise.String(r.DC.Titles[i].Title); err != nil {
			return err
		}
	}

	for i := range r.DC.Creators {
		if r.DC.Creators[i].CreatorName, err = sanitise.String(r.DC.Creators[i].CreatorName); err != nil {
			return err
		}

		if err = sanitise.Strings(r.DC.Creators[i].Affiliation); err != nil {
			return err
		}
	}

	for i := range r.DC.Descriptions {
		if r.DC.Descriptions[i].Description, err = sanitise.String(r.DC.Descriptions[i].Description); err != nil {
			return err
		}
	}

	for i := range r.DC.Subjects {
		if r.DC.Subjects[i].Subject, err = sanitise.String(r.DC.Subjects[i].Subject); err != nil {
			return err
		}
	}

	if r.DC.Publisher, err = sanitise.String(r.DC.Publisher); err != nil {
		return err
	}

	if err = sanitise.Strings(r.MDF.Organizations); err != nil {
		return err
	}

	return sanitise.Strings(r.Tags)
}

// SourceName returns the dataset name, from mdf.source_name if given and
// derived from the title otherwise.
func (r *SubmissionRequest) SourceName() (string, error) {
	var name string
	if r.MDF.SourceName != "" {
		name = NormaliseSourceName(r.MDF.SourceName, r.Test)
	} else {
		name = MakeSourceName(r.Title(), r.Test)
	}

	if strings.Trim(name, "_") == "" || name == testPrefix {
		return "", ErrEmptySourceName
	}

	return name, nil
}

// Hash identifies the request content. The update flag is excluded so a
// retried update of the same content hashes the same.
func (r *SubmissionRequest) Hash() (string, error) {
	c := *r
	c.Update = false

	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}

	return base62.Digest(data)
}
