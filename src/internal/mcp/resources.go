package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"
)

// resource URIs
const (
	bandInfoPrefix     = "band://info/"
	collectionSummary  = "collection://summary"
	collectionInsights = "collection://insights"
)

// registerResources registers the read-only views of the collection
func (me *Adapter) registerResources() {
	me.srv.AddResource(mcp.NewResource(
		collectionSummary,
		"Collection summary",
		mcp.WithResourceDescription("Band summaries and aggregate statistics of the whole collection"),
		mcp.WithMIMEType("application/json"),
	), me.readCollectionSummary)

	me.srv.AddResource(mcp.NewResource(
		collectionInsights,
		"Collection insights",
		mcp.WithResourceDescription("Derived analytics: maturity, health, distributions and recommendations"),
		mcp.WithMIMEType("application/json"),
	), me.readCollectionInsights)

	me.srv.AddResourceTemplate(mcp.NewResourceTemplate(
		bandInfoPrefix+"{band_name}",
		"Band record",
		mcp.WithTemplateDescription("Full stored record of one band"),
		mcp.WithTemplateMIMEType("application/json"),
	), me.readBandInfo)
}

func (me *Adapter) readCollectionSummary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	idx, err := me.coll.Index()
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, idx)
}

func (me *Adapter) readCollectionInsights(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ins, err := me.coll.Analytics()
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, ins)
}

func (me *Adapter) readBandInfo(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	band, err := bandFromURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	b, err := me.coll.GetBand(band)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, b)
}

// bandFromURI extracts the band name from a band://info/ URI
func bandFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, bandInfoPrefix) {
		return "", fmt.Errorf("'%s' is no band resource URI", uri)
	}
	band, err := url.PathUnescape(strings.TrimPrefix(uri, bandInfoPrefix))
	if err != nil {
		return "", errors.Wrapf(err, "cannot decode band name from '%s'", uri)
	}
	if band == "" {
		return "", fmt.Errorf("'%s' names no band", uri)
	}
	return band, nil
}

// jsonContents wraps v as a single JSON resource content
func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode resource")
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// registerPrompts registers the guidance prompt for metadata curation
func (me *Adapter) registerPrompts() {
	me.srv.AddPrompt(mcp.NewPrompt("curate_band_metadata",
		mcp.WithPromptDescription("Guide the enrichment of one band with metadata and an analysis"),
		mcp.WithArgument("band_name", mcp.ArgumentDescription("Name of the band to curate")),
	), me.curateBandMetadata)
}

func (me *Adapter) curateBandMetadata(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	band := req.Params.Arguments["band_name"]
	if band == "" {
		band = "the band"
	}

	text := fmt.Sprintf(
		"Enrich the stored record of %s. First call get_band_metadata to see the "+
			"current state, then research the band and fill in formed, genres, origin, "+
			"members and description, complete the albums_missing list with releases "+
			"that are absent from the collection and store the result with "+
			"save_band_metadata. Years are 4-digit strings, an album is identified by "+
			"its title, year and edition, and local albums must keep their folder_path. "+
			"Afterwards store reviews and 1-10 ratings with save_band_analyze.",
		band)

	return mcp.NewGetPromptResult(
		"Metadata curation for "+band,
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
		},
	), nil
}
