package report

import "html/template"

type chartSnippet struct {
	Element template.HTML
	Script  template.HTML
}

type pageData struct {
	Location       string
	RadiusKm       float64
	GeneratedAt    string
	Months         []string
	StationCount   int
	StartYear      int
	EndYear        int
	ShowTrend      bool
	ShowMedian     bool
	ShadeDeviation bool
	TempChart      chartSnippet
	PrecipChart    chartSnippet
	MapChart       *chartSnippet
}

const echartsJS = "https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Climate Analysis - {{ .Location }}</title>
    <link href="https://fonts.googleapis.com/css2?family=Inter:wght@400;600&display=swap" rel="stylesheet">
    <script src="` + echartsJS + `"></script>
    <style>
        body {
            font-family: 'Inter', sans-serif;
            max-width: 1000px;
            margin: 0 auto;
            padding: 2em;
            background: #f8f9fa;
            color: #333;
        }
        .card {
            background: white;
            padding: 2em;
            border-radius: 12px;
            box-shadow: 0 4px 20px rgba(0,0,0,0.06);
            margin-bottom: 2em;
        }
        h1 { font-weight: 600; text-align: center; margin: 0; }
        header {
            margin-bottom: 2.5em;
            border-bottom: 1px solid #ddd;
            padding-bottom: 1.5em;
        }
        .meta {
            color: #666;
            text-align: center;
            margin-top: 0.5em;
            font-size: 0.9em;
        }
        .controls {
            background: #fff;
            padding: 1em;
            border-radius: 8px;
            margin-bottom: 2em;
            display: flex;
            align-items: center;
            justify-content: center;
            gap: 15px;
            box-shadow: 0 2px 10px rgba(0,0,0,0.04);
        }
        select {
            padding: 8px 16px;
            border-radius: 6px;
            border: 1px solid #ccc;
            font-family: inherit;
            cursor: pointer;
        }
        footer {
            text-align: center;
            color: #999;
            font-size: 0.8em;
            margin-top: 2em;
        }
    </style>
</head>
<body>
    <header>
        <h1>Climate Analysis: {{ .Location }}</h1>
        <div class="meta">
            {{ .RadiusKm }} km radius &middot; {{ .StationCount }} {{ .StationCount | plural "station" "stations" }} &middot; {{ .StartYear }}&ndash;{{ .EndYear }}<br>
            Generated: {{ .GeneratedAt }}
        </div>
    </header>
    <div class="controls">
        <label for="month-select"><b>Select Month:</b></label>
        <select id="month-select">
            {{- range $i, $m := .Months }}
            <option value="{{ $i }}">{{ $m }}</option>
            {{- end }}
        </select>
    </div>
    <div class="card">{{ .TempChart.Element }}</div>
    <div class="card">{{ .PrecipChart.Element }}</div>
    {{- if .MapChart }}
    <div class="card">{{ .MapChart.Element }}</div>
    {{- end }}
    <footer>climatrend &copy; {{ now | date "2006" }}</footer>
    {{ .TempChart.Script }}
    {{ .PrecipChart.Script }}
    {{- if .MapChart }}
    {{ .MapChart.Script }}
    {{- end }}
    <script>
    (function () {
        var months = {{ .Months }};
        var showTrend = {{ .ShowTrend }};
        var showMedian = {{ .ShowMedian }};
        var showDev = {{ .ShadeDeviation }};
        var chartIDs = ['charttemp', 'chartprecip'];
        var suffixes = ['', ' spread', ' spread base', ' trend', ' median', ' band', ' band base'];

        document.getElementById('month-select').addEventListener('change', function (e) {
            var selected = months[parseInt(e.target.value, 10)];
            chartIDs.forEach(function (id) {
                var el = document.getElementById(id);
                if (!el) { return; }
                var chart = echarts.getInstanceByDom(el);
                if (!chart) { return; }
                months.forEach(function (m) {
                    suffixes.forEach(function (s) {
                        chart.dispatchAction({type: 'legendUnSelect', name: m + s});
                    });
                });
                ['', ' spread', ' spread base'].forEach(function (s) {
                    chart.dispatchAction({type: 'legendSelect', name: selected + s});
                });
                if (showTrend) {
                    chart.dispatchAction({type: 'legendSelect', name: selected + ' trend'});
                }
                if (showMedian) {
                    chart.dispatchAction({type: 'legendSelect', name: selected + ' median'});
                }
                if (showDev) {
                    chart.dispatchAction({type: 'legendSelect', name: selected + ' band'});
                    chart.dispatchAction({type: 'legendSelect', name: selected + ' band base'});
                }
            });
        });
    })();
    </script>
</body>
</html>
`
