package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/pmarasse/cas-persondir-ldap/internal/ldap"
	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
	"github.com/pmarasse/cas-persondir-ldap/internal/provider/helpers"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &PersonDataSource{}
var _ datasource.DataSourceWithConfigure = &PersonDataSource{}

func NewPersonDataSource() datasource.DataSource {
	return &PersonDataSource{}
}

// PersonDataSource resolves one identifier through the configured lookup pipeline.
type PersonDataSource struct {
	data *ldapclient.ProviderData
}

// PersonDataSourceModel describes the data source data model.
type PersonDataSourceModel struct {
	Identifier    types.String `tfsdk:"identifier"`
	FailIfMissing types.Bool   `tfsdk:"fail_if_missing"`

	ID             types.String `tfsdk:"id"`
	Found          types.Bool   `tfsdk:"found"`
	DN             types.String `tfsdk:"dn"`
	AttributeNames types.List   `tfsdk:"attribute_names"`
	Attributes     types.Map    `tfsdk:"attributes"`
}

func (d *PersonDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_person"
}

func (d *PersonDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Resolves a user identifier to its attributes. The identifier is substituted into the provider " +
			"`filter`, the matching entry is read, its attributes are renamed through `attribute_mapping` and the " +
			"processor chain is applied. A missing entry is not an error unless `fail_if_missing` is set.",

		Attributes: map[string]schema.Attribute{
			"identifier": schema.StringAttribute{
				MarkdownDescription: "The identifier to resolve, usually a login name. It is inserted into the filter verbatim.",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"fail_if_missing": schema.BoolAttribute{
				MarkdownDescription: "Report an error when no entry matches. Defaults to `false`, which sets `found` to `false` instead.",
				Optional:            true,
			},
			"id": schema.StringAttribute{
				MarkdownDescription: "Same as `identifier`.",
				Computed:            true,
			},
			"found": schema.BoolAttribute{
				MarkdownDescription: "Whether an entry matched the identifier.",
				Computed:            true,
			},
			"dn": schema.StringAttribute{
				MarkdownDescription: "Value of the provider `dn_attribute`, when configured and present.",
				Computed:            true,
			},
			"attribute_names": schema.ListAttribute{
				MarkdownDescription: "Sorted names of the returned attributes.",
				ElementType:         types.StringType,
				Computed:            true,
			},
			"attributes": schema.MapAttribute{
				MarkdownDescription: "Attribute name to values, in directory order. Binary values are base64 encoded.",
				ElementType:         helpers.AttributeValuesType.ElemType,
				Computed:            true,
			},
		},
	}
}

func (d *PersonDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	// Prevent panic if the provider has not been configured.
	if req.ProviderData == nil {
		return
	}

	data, ok := req.ProviderData.(*ldapclient.ProviderData)
	if !ok {
		resp.Diagnostics.AddError(
			"Unexpected Data Source Configure Type",
			fmt.Sprintf("Expected *ldap.ProviderData, got: %T. Please report this issue to the provider developers.", req.ProviderData),
		)
		return
	}

	d.data = data
}

func (d *PersonDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data PersonDataSourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	logCompletion := logging.LogDataSourceOperation(ctx, logging.NewTFLogger(logging.SubsystemProvider),
		"persondir_person", "read", map[string]any{"identifier": data.Identifier.ValueString()})
	defer func() {
		var err error
		for _, diag := range resp.Diagnostics.Errors() {
			err = fmt.Errorf("%s: %s", diag.Summary(), diag.Detail())
			break
		}
		logCompletion(err)
	}()

	if d.data == nil || d.data.Engine == nil {
		resp.Diagnostics.AddError(
			"Unconfigured Provider",
			"The person directory provider has not been configured. Please report this issue to the provider developers.",
		)
		return
	}

	identifier := data.Identifier.ValueString()
	record, err := d.data.Engine.Lookup(ctx, identifier)
	if err != nil {
		resp.Diagnostics.AddError(
			"Error Reading Person",
			fmt.Sprintf("Could not resolve %q (%s): %s", identifier, ldapclient.GetErrorCategory(err), err.Error()),
		)
		return
	}

	if record == nil && data.FailIfMissing.ValueBool() {
		resp.Diagnostics.AddError(
			"Person Not Found",
			fmt.Sprintf("No directory entry matches the identifier %q.", identifier),
		)
		return
	}

	d.mapRecordToModel(record, d.data.Engine.Config().DNAttribute, &data, resp)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Resolved person", map[string]any{
		"identifier":      identifier,
		"found":           record != nil,
		"attribute_count": len(data.Attributes.Elements()),
	})

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

// mapRecordToModel fills the computed attributes. A nil record yields found = false
// and empty collections.
func (d *PersonDataSource) mapRecordToModel(record *persondir.Record, dnAttribute string, data *PersonDataSourceModel, resp *datasource.ReadResponse) {
	data.ID = data.Identifier
	data.Found = types.BoolValue(record != nil)
	data.DN = types.StringNull()

	var (
		names  []string
		values map[string][]any
	)
	if record != nil {
		names = record.Names()
		values = record.Map()
		if dnAttribute != "" {
			if dn, ok := record.GetString(dnAttribute); ok {
				data.DN = types.StringValue(dn)
			}
		}
	}

	list, diags := helpers.StringListValue(names)
	resp.Diagnostics.Append(diags...)
	data.AttributeNames = list

	attributes, diags := helpers.AttributeValues(values)
	resp.Diagnostics.Append(diags...)
	data.Attributes = attributes
}
