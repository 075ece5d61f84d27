package help

const ColdstartYAML = `# corpus-collector Quick Start

requirements:
  - "A browser bridge listening on --bridge-url (default ws://127.0.0.1:8765/bridge)"
  - "A trainee ruleset loaded in the browser (--ruleset)"

commands:
  basic_collect: |
    corpus-collector collect --base-url "https://example.com/" --pages "$(cat pages.txt)" --ruleset overlay

  slow_pages: |
    corpus-collector collect -c collector.yaml --wait 3 --retry-on-error

  with_metrics: |
    corpus-collector collect -c collector.yaml --metrics-addr 127.0.0.1:9100

  label_element: |
    corpus-collector label --url "https://example.com/a" --selector "#cookie-banner" --label overlay

  list_runs: |
    corpus-collector runs

  run_details: |
    corpus-collector run 5
    corpus-collector run --fields page_count,failed --format json

config_file:
  path: "collector.yaml (or --config / CORPUS_CONFIG)"
  keys: [base_url, pages, pages_file, ruleset, wait, retry_on_error, bridge_url, output_dir, database, metrics_addr, page_timeout]
  precedence: "flags > CORPUS_* environment > config file > defaults"

run_invariants:
  - "Pages are visited one at a time, in the order given"
  - "Blank page lines are skipped; each line is appended to base_url as is"
  - "wait seconds elapse before every vectorize attempt"
  - "retry_on_error allows 10 attempts per page, 1s apart"
  - "Null feature values produce a warning naming their rules"
  - "vectors.json is written once, after the last page, even if every page failed"

output:
  file: "<output_dir>/vectors.json"
  shape: '{"header": {"version": 1, "featureNames": [...]}, "pages": [{"nodes": [{"features": [...]}]}]}'

error_behavior:
  - "Failed pages are logged and the run continues"
  - "Interrupting a run still writes the pages collected so far"
  - "Exit codes: 0=success, 1=nothing to do or bad input, 2=run failed"
`
