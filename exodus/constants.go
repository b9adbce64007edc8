package exodus

// Default bounds for new databases, matching the C library's defaults.
const (
	MaxStringLength = 32
	MaxNameLength   = 32
	MaxLineLength   = 80

	libraryVersion = float32(7.22)
)

// Global attribute names.
const (
	attTitle         = "title"
	attVersion       = "version"
	attAPIVersion    = "api_version"
	attAPIVersionOld = "api version"
	attWordSize      = "floating_point_word_size"
	attWordSizeOld   = "floating point word size"
	attFileSize      = "file_size"
	attInt64Status   = "int64_status"
	attMaxNameLength = "maximum_name_length"
)

// Dimension names.
const (
	dimStringLength = "len_string"
	dimNameLength   = "len_name"
	dimLineLength   = "len_line"
	dimFour         = "four"
	dimNumDim       = "num_dim"
	dimNumNodes     = "num_nodes"
	dimNumElem      = "num_elem"
	dimNumElemBlk   = "num_el_blk"
	dimNumNodeSets  = "num_node_sets"
	dimNumSideSets  = "num_side_sets"
	dimNumQA        = "num_qa_rec"
	dimNumInfo      = "num_info"
	dimTimeStep     = "time_step"
	dimNumGloVar    = "num_glo_var"
	dimNumNodVar    = "num_nod_var"
	dimNumElemVar   = "num_elem_var"
)

// Variable names. Per-set and per-block names embed a 1-based index.
const (
	varCoord       = "coord"
	varCoordX      = "coordx"
	varCoordY      = "coordy"
	varCoordZ      = "coordz"
	varCoordNames  = "coor_names"
	varQARecords   = "qa_records"
	varInfoRecords = "info_records"
	varTimeWhole   = "time_whole"
	varNodeIDMap   = "node_num_map"
	varElemIDMap   = "elem_num_map"
	varElemOrder   = "elem_map"

	varEBStatus  = "eb_status"
	varEBIDs     = "eb_prop1"
	varEBNames   = "eb_names"
	varConnect   = "connect%d"
	dimElemInBlk = "num_el_in_blk%d"
	dimNodPerEl  = "num_nod_per_el%d"
	dimAttInBlk  = "num_att_in_blk%d"
	attElemType  = "elem_type"

	varNSIDs      = "ns_prop1"
	varNSStatus   = "ns_status"
	varNSNames    = "ns_names"
	varNodeNS     = "node_ns%d"
	varDistFactNS = "dist_fact_ns%d"
	dimNumNodNS   = "num_nod_ns%d"

	varSSIDs      = "ss_prop1"
	varSSStatus   = "ss_status"
	varSSNames    = "ss_names"
	varElemSS     = "elem_ss%d"
	varSideSS     = "side_ss%d"
	varDistFactSS = "dist_fact_ss%d"
	dimNumSideSS  = "num_side_ss%d"
	dimNumDFSS    = "num_df_ss%d"

	varValsGloVar      = "vals_glo_var"
	varValsNodVarSmall = "vals_nod_var"
	varValsNodVarLarge = "vals_nod_var%d"
	varNameGloVar      = "name_glo_var"
	varNameNodVar      = "name_nod_var"
)
