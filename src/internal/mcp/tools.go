package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"gitlab.com/smeitner/collserv/src/internal/collection"
)

// registerTools registers all collection operations as tools
func (me *Adapter) registerTools() {
	me.srv.AddTool(mcp.NewTool("scan_music_folders",
		mcp.WithDescription("Scan the music root, merge the result into the stored metadata and rebuild the collection index"),
	), me.scanMusicFolders)

	me.srv.AddTool(mcp.NewTool("list_bands",
		mcp.WithDescription("List the bands of the collection with filtering, sorting and pagination"),
		mcp.WithString("search", mcp.Description("Match band names and album titles, ignoring case")),
		mcp.WithString("filter_genre", mcp.Description("Keep only bands with this genre")),
		mcp.WithBoolean("filter_has_metadata", mcp.Description("Keep only bands with (true) or without (false) enrichment")),
		mcp.WithBoolean("filter_missing_albums", mcp.Description("Keep only bands with (true) or without (false) missing albums")),
		mcp.WithString("sort_by", mcp.Description("Sort key: name, albums_count, last_updated or completion")),
		mcp.WithString("sort_order", mcp.Description("Sort order: asc or desc")),
		mcp.WithNumber("page", mcp.Description("1-based page number")),
		mcp.WithNumber("page_size", mcp.Description("Page size, at most 100")),
		mcp.WithBoolean("include_albums", mcp.Description("Include the album lists of each band")),
		mcp.WithString("album_details_filter", mcp.Description("Which album lists to include: all, local or missing")),
	), me.listBands)

	me.srv.AddTool(mcp.NewTool("search_albums",
		mcp.WithDescription("Search albums across the whole collection with a composable predicate"),
		mcp.WithArray("album_types", mcp.Description("Keep only these album types")),
		mcp.WithNumber("year_min", mcp.Description("Earliest release year")),
		mcp.WithNumber("year_max", mcp.Description("Latest release year")),
		mcp.WithArray("decades", mcp.Description("Keep only these decades, e.g. \"1980s\"")),
		mcp.WithArray("editions", mcp.Description("Keep only these editions; \"Standard\" matches albums without one")),
		mcp.WithArray("genres", mcp.Description("Keep only albums with one of these genres")),
		mcp.WithArray("bands", mcp.Description("Keep only albums of these bands")),
		mcp.WithBoolean("has_rating", mcp.Description("Keep only rated (true) or unrated (false) albums")),
		mcp.WithNumber("rating_min", mcp.Description("Minimum rating, 1-10")),
		mcp.WithNumber("rating_max", mcp.Description("Maximum rating, 1-10")),
		mcp.WithBoolean("is_local", mcp.Description("Keep only local (true) or missing (false) albums")),
		mcp.WithNumber("track_count_min", mcp.Description("Minimum track count")),
		mcp.WithNumber("track_count_max", mcp.Description("Maximum track count")),
	), me.searchAlbums)

	me.srv.AddTool(mcp.NewTool("get_band_metadata",
		mcp.WithDescription("Return the full stored record of one band"),
		mcp.WithString("band_name", mcp.Required(), mcp.Description("Name of the band folder")),
	), me.getBandMetadata)

	me.srv.AddTool(mcp.NewTool("save_band_metadata",
		mcp.WithDescription("Validate and store the full metadata record of a band"),
		mcp.WithString("band_name", mcp.Required(), mcp.Description("Name of the band folder")),
		mcp.WithObject("metadata", mcp.Required(), mcp.Description("Full band record to store")),
	), me.saveBandMetadata)

	me.srv.AddTool(mcp.NewTool("save_band_analyze",
		mcp.WithDescription("Store the analysis block (reviews, ratings, similar bands) of a band"),
		mcp.WithString("band_name", mcp.Required(), mcp.Description("Name of the band folder")),
		mcp.WithObject("analyze", mcp.Required(), mcp.Description("Analysis block to store")),
	), me.saveBandAnalyze)

	me.srv.AddTool(mcp.NewTool("save_collection_insight",
		mcp.WithDescription("Persist a collection insights record at the music root"),
		mcp.WithObject("insights", mcp.Required(), mcp.Description("Insights record to store")),
	), me.saveCollectionInsight)

	me.srv.AddTool(mcp.NewTool("validate_band_metadata",
		mcp.WithDescription("Validate a band record against the metadata schema without storing it"),
		mcp.WithObject("metadata", mcp.Required(), mcp.Description("Band record to validate")),
	), me.validateBandMetadata)

	me.srv.AddTool(mcp.NewTool("analyze_collection_insights",
		mcp.WithDescription("Derive the analytical view of the collection: maturity, health, distributions and recommendations"),
	), me.analyzeCollectionInsights)
}

func (me *Adapter) scanMusicFolders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := me.coll.Scan(ctx)
	if err != nil {
		return failure(err), nil
	}
	return result(report)
}

func (me *Adapter) listBands(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var lreq collection.ListBandsRequest
	if err := decodeArgs(req, &lreq); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	list, err := me.coll.ListBands(&lreq)
	if err != nil {
		return failure(err), nil
	}
	return result(list)
}

func (me *Adapter) searchAlbums(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sreq collection.SearchAlbumsRequest
	if err := decodeArgs(req, &sreq); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	hits, err := me.coll.SearchAlbums(&sreq)
	if err != nil {
		return failure(err), nil
	}
	return result(hits)
}

func (me *Adapter) getBandMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Band string `json:"band_name"`
	}
	if err := decodeArgs(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	b, err := me.coll.GetBand(args.Band)
	if err != nil {
		return failure(err), nil
	}
	return result(b)
}

func (me *Adapter) saveBandMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Band     string          `json:"band_name"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := decodeArgs(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := me.coll.SaveBandMetadata(args.Band, args.Metadata)
	if err != nil {
		return failure(err), nil
	}
	return result(report)
}

func (me *Adapter) saveBandAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Band    string                   `json:"band_name"`
		Analyze *collection.BandAnalysis `json:"analyze"`
	}
	if err := decodeArgs(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if args.Analyze == nil {
		return mcp.NewToolResultError("analyze block is required"), nil
	}

	report, err := me.coll.SaveBandAnalysis(args.Band, args.Analyze)
	if err != nil {
		return failure(err), nil
	}
	return result(report)
}

func (me *Adapter) saveCollectionInsight(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Insights *collection.CollectionInsights `json:"insights"`
	}
	if err := decodeArgs(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if args.Insights == nil {
		return mcp.NewToolResultError("insights record is required"), nil
	}

	path, err := me.coll.SaveInsights(args.Insights)
	if err != nil {
		return failure(err), nil
	}
	return result(map[string]string{"path": path, "generated_at": args.Insights.GeneratedAt})
}

func (me *Adapter) validateBandMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := decodeArgs(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := me.coll.ValidateBandMetadata(args.Metadata)
	if err != nil {
		return failure(err), nil
	}
	return result(report)
}

func (me *Adapter) analyzeCollectionInsights(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ins, err := me.coll.Analytics()
	if err != nil {
		return failure(err), nil
	}
	return result(ins)
}
